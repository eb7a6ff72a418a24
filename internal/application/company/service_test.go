package company

import (
	"context"
	"errors"
	"testing"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/company"
	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindByLicenseNo(ctx context.Context, licenseNo string) (*company.Company, error) {
	args := m.Called(ctx, licenseNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]company.Company, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]company.Company), args.Get(1).(int64), args.Error(2)
}

func (m *MockCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCompanyRepository) SaveWithLock(ctx context.Context, c *company.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCompanyRepository) CountByStatus(ctx context.Context, status company.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// userStore is a map-backed identity.UserRepository
type userStore struct {
	users   map[uuid.UUID]*identity.User
	updates int
}

func newUserStore(users ...*identity.User) *userStore {
	s := &userStore{users: map[uuid.UUID]*identity.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) Create(_ context.Context, u *identity.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *userStore) Update(_ context.Context, u *identity.User) error {
	s.updates++
	s.users[u.ID] = u
	return nil
}

func (s *userStore) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) FindByUsername(context.Context, string) (*identity.User, error) {
	return nil, shared.ErrNotFound
}

func (s *userStore) FindByWechatOpenID(context.Context, string) (*identity.User, error) {
	return nil, shared.ErrNotFound
}

func (s *userStore) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (s *userStore) ExistsByEmail(context.Context, string) (bool, error)    { return false, nil }

func (s *userStore) FindByCompany(_ context.Context, companyID uuid.UUID) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range s.users {
		if u.CompanyID != nil && *u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userStore) FindAll(context.Context, shared.Filter) ([]*identity.User, int64, error) {
	return nil, 0, nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

const testLicense = "91310000MA1FL8XQ3K"

func validProfile() ProfileInput {
	return ProfileInput{
		Name:         "Acme Trading",
		LicenseNo:    testLicense,
		ContactName:  "Li Lei",
		ContactPhone: "13800000000",
		ContactEmail: "ops@acme.example",
	}
}

func newCustomer(t *testing.T) *identity.User {
	t.Helper()
	u, err := identity.NewCustomer("acme", "", "secret123")
	require.NoError(t, err)
	return u
}

func staff() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Role: shared.RoleOperator}
}

func newTestService(repo *MockCompanyRepository, users *userStore, approver AutoApprover, pub shared.EventPublisher) *Service {
	scope := common.NewNoOpTransactionScope(repo, nil, nil, users)
	return NewService(repo, scope, approver, decimal.NewFromInt(50000), pub, zap.NewNop())
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("pending review and user linked", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		user := newCustomer(t)
		users := newUserStore(user)
		pub := &recordingPublisher{}
		svc := newTestService(repo, users, nil, pub)
		repo.On("FindByLicenseNo", ctx, testLicense).Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*company.Company")).Return(nil)

		dto, err := svc.Submit(ctx, user.Actor(), validProfile())
		require.NoError(t, err)
		assert.Equal(t, "PENDING_REVIEW", dto.Status)
		require.NotNil(t, user.CompanyID)
		assert.Equal(t, dto.ID, *user.CompanyID)
		require.Len(t, pub.events, 1)
		assert.Equal(t, company.EventTypeCompanySubmitted, pub.events[0].EventType())
	})

	t.Run("auto approval rule", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		user := newCustomer(t)
		rule, err := policy.CompileOnboardingRule(`contact_email.endsWith("@acme.example")`)
		require.NoError(t, err)
		svc := newTestService(repo, newUserStore(user), rule, nil)
		repo.On("FindByLicenseNo", ctx, testLicense).Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*company.Company")).Return(nil)

		dto, err := svc.Submit(ctx, user.Actor(), validProfile())
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", dto.Status)
		assert.True(t, dto.CreditLimit.Equal(decimal.NewFromInt(50000)))
	})

	t.Run("already onboarded", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		user := newCustomer(t)
		require.NoError(t, user.JoinCompany(uuid.New()))
		svc := newTestService(repo, newUserStore(user), nil, nil)

		_, err := svc.Submit(ctx, user.Actor(), validProfile())
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ALREADY_ONBOARDED", de.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("license already registered", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		user := newCustomer(t)
		other, err := company.Submit(validProfile().toProfile(), uuid.New())
		require.NoError(t, err)
		svc := newTestService(repo, newUserStore(user), nil, nil)
		repo.On("FindByLicenseNo", ctx, testLicense).Return(other, nil)

		_, err = svc.Submit(ctx, user.Actor(), validProfile())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.Nil(t, user.CompanyID)
	})

	t.Run("invalid license number", func(t *testing.T) {
		svc := newTestService(new(MockCompanyRepository), newUserStore(), nil, nil)
		in := validProfile()
		in.LicenseNo = "123"
		_, err := svc.Submit(ctx, newCustomer(t).Actor(), in)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_LICENSE_NO", de.Code)
	})
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCompanyRepository)
	svc := newTestService(repo, newUserStore(), nil, nil)
	c, err := company.Submit(validProfile().toProfile(), uuid.New())
	require.NoError(t, err)
	repo.On("FindByID", ctx, c.ID).Return(c, nil)
	repo.On("SaveWithLock", ctx, c).Return(nil)
	op := staff()

	_, err = svc.Reject(ctx, op, c.ID, "  ")
	require.Error(t, err)

	dto, err := svc.Reject(ctx, op, c.ID, "blurry license")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", dto.Status)
	assert.Equal(t, "blurry license", dto.RejectReason)

	_, err = svc.Approve(ctx, op, c.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, c.Resubmit(validProfile().toProfile()))
	dto, err = svc.Approve(ctx, op, c.ID, decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", dto.Status)
	assert.Equal(t, op.UserID, *dto.ReviewedBy)

	dto, err = svc.Suspend(ctx, op, c.ID, "overdue bills")
	require.NoError(t, err)
	assert.Equal(t, "SUSPENDED", dto.Status)

	dto, err = svc.Reinstate(ctx, op, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", dto.Status)

	customer := shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer, CompanyID: &c.ID}
	_, err = svc.Approve(ctx, customer, c.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestService_AdjustCreditLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCompanyRepository)
	svc := newTestService(repo, newUserStore(), nil, nil)
	c, err := company.Submit(validProfile().toProfile(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, c.Approve(uuid.New(), decimal.NewFromInt(10000)))
	require.NoError(t, c.ReserveCredit(decimal.NewFromInt(6000)))
	repo.On("FindByID", ctx, c.ID).Return(c, nil)
	repo.On("SaveWithLock", ctx, c).Return(nil)

	_, err = svc.AdjustCreditLimit(ctx, staff(), c.ID, decimal.NewFromInt(5000))
	require.Error(t, err)

	_, err = svc.AdjustCreditLimit(ctx, staff(), c.ID, decimal.NewFromInt(-1))
	require.Error(t, err)

	dto, err := svc.AdjustCreditLimit(ctx, staff(), c.ID, decimal.NewFromInt(8000))
	require.NoError(t, err)
	assert.Equal(t, "2000", dto.AvailableCredit.String())
}

func TestService_Scoping(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCompanyRepository)
	svc := newTestService(repo, newUserStore(), nil, nil)
	c, err := company.Submit(validProfile().toProfile(), uuid.New())
	require.NoError(t, err)
	repo.On("FindByID", ctx, c.ID).Return(c, nil)

	owner := shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer, CompanyID: &c.ID}
	dto, err := svc.GetMine(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, c.ID, dto.ID)

	otherID := uuid.New()
	stranger := shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer, CompanyID: &otherID}
	_, err = svc.Get(ctx, stranger, c.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.GetMine(ctx, shared.Actor{UserID: uuid.New(), Role: shared.RoleCustomer})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.List(ctx, owner, shared.Filter{})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	repo.On("FindAll", ctx, mock.Anything).Return([]company.Company{*c}, int64(1), nil)
	page, err := svc.List(ctx, staff(), shared.Filter{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestService_AutoApprovalFailureFallsBackToReview(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCompanyRepository)
	user := newCustomer(t)
	svc := newTestService(repo, newUserStore(user), approverFunc(func(context.Context, policy.OnboardingInput) (bool, error) {
		return false, errors.New("cost limit exceeded")
	}), nil)
	repo.On("FindByLicenseNo", ctx, testLicense).Return(nil, shared.ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*company.Company")).Return(nil)

	dto, err := svc.Submit(ctx, user.Actor(), validProfile())
	require.NoError(t, err)
	assert.Equal(t, "PENDING_REVIEW", dto.Status)
}

type approverFunc func(context.Context, policy.OnboardingInput) (bool, error)

func (f approverFunc) Evaluate(ctx context.Context, in policy.OnboardingInput) (bool, error) {
	return f(ctx, in)
}
