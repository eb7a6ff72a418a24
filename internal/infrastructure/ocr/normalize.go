package ocr

import (
	"regexp"
	"strings"
)

// provider labels mapped to the keys onboarding forms use
var licenseKeys = map[string]string{
	"单位名称":     "company_name",
	"名称":       "company_name",
	"社会信用代码":   "license_no",
	"统一社会信用代码": "license_no",
	"证件编号":     "registration_no",
	"法人":       "legal_person",
	"法定代表人":    "legal_person",
	"地址":       "address",
	"住所":       "address",
	"类型":       "company_type",
	"成立日期":     "established_at",
	"注册资本":     "registered_capital",
	"经营范围":     "business_scope",
	"有效期":      "valid_until",
}

var idCardKeys = map[string]string{
	"姓名":     "name",
	"公民身份号码": "id_number",
	"住址":     "address",
	"性别":     "gender",
	"民族":     "ethnicity",
	"出生":     "birth_date",
}

func normalizeKey(docType DocumentType, label string) string {
	var table map[string]string
	switch docType {
	case DocumentBusinessLicense:
		table = licenseKeys
	case DocumentIDCard:
		table = idCardKeys
	}
	if key, ok := table[label]; ok {
		return key
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
}

var (
	blNumberPattern = regexp.MustCompile(`(?i)\bB/?L\s*(?:NO\.?|NUMBER)?\s*[:：]?\s*([A-Z0-9]{8,20})\b`)
	containerNumber = regexp.MustCompile(`\b([A-Z]{4}\d{7})\b`)
	vesselPattern   = regexp.MustCompile(`(?i)\bVESSEL\s*(?:/\s*VOYAGE)?\s*[:：]?\s*(.+)$`)
	portPattern     = regexp.MustCompile(`(?i)\bPORT OF (LOADING|DISCHARGE)\s*[:：]?\s*(.+)$`)
)

// extractBillOfLading picks the well-known fields out of free text lines
func extractBillOfLading(res *Result) {
	var containers []string
	seen := map[string]bool{}
	for _, line := range res.Words {
		upper := strings.ToUpper(line)
		if m := blNumberPattern.FindStringSubmatch(upper); m != nil {
			if _, ok := res.Fields["bl_no"]; !ok {
				res.Fields["bl_no"] = m[1]
			}
		}
		if m := vesselPattern.FindStringSubmatch(line); m != nil {
			if _, ok := res.Fields["vessel"]; !ok {
				res.Fields["vessel"] = strings.TrimSpace(m[1])
			}
		}
		if m := portPattern.FindStringSubmatch(line); m != nil {
			key := "port_of_" + strings.ToLower(m[1])
			if _, ok := res.Fields[key]; !ok {
				res.Fields[key] = strings.TrimSpace(m[2])
			}
		}
		for _, m := range containerNumber.FindAllStringSubmatch(upper, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				containers = append(containers, m[1])
			}
		}
	}
	if len(containers) > 0 {
		res.Fields["container_numbers"] = strings.Join(containers, ",")
	}
}
