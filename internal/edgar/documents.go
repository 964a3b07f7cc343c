package edgar

import (
	"path/filepath"
	"strings"
)

var binaryExtensions = map[string]struct{}{
	".pdf":  {},
	".gif":  {},
	".jpg":  {},
	".png":  {},
	".xls":  {},
	".xlsx": {},
	".zip":  {},
}

// IsBinaryFilename reports whether a document with this filename is carried
// UUENCODE-framed.
func IsBinaryFilename(name string) bool {
	_, ok := binaryExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
	return ok
}

// IsPDFFilename reports whether the document carries the extra <PDF> wrapper.
func IsPDFFilename(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".pdf")
}

// ContentType returns the MIME type used when storing a document blob.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".pdf":
		return "application/pdf"
	case ".gif":
		return "image/gif"
	case ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	case ".htm", ".html":
		return "text/html"
	case ".xml", ".xsd":
		return "application/xml"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}

// investmentCompanyForms lists the form types whose headers carry the series
// and class-contract blocks. Amendments (/A) share their base form's entry.
var investmentCompanyForms = map[string]struct{}{
	"N-1A":     {},
	"N-2":      {},
	"N-3":      {},
	"N-4":      {},
	"N-5":      {},
	"N-6":      {},
	"N-8B-2":   {},
	"N-14":     {},
	"N-14 8C":  {},
	"N-CSR":    {},
	"N-CSRS":   {},
	"N-CEN":    {},
	"N-MFP":    {},
	"N-MFP2":   {},
	"N-MFP3":   {},
	"N-PORT":   {},
	"NPORT-P":  {},
	"NPORT-EX": {},
	"N-PX":     {},
	"N-Q":      {},
	"N-30D":    {},
	"N-30B-2":  {},
	"N-8F":     {},
	"24F-2NT":  {},
	"40-17G":   {},
	"485APOS":  {},
	"485BPOS":  {},
	"485BXT":   {},
	"486APOS":  {},
	"486BPOS":  {},
	"486BXT":   {},
	"497":      {},
	"497AD":    {},
	"497J":     {},
	"497K":     {},
	"497VPI":   {},
	"497VPU":   {},
	"S-6":      {},
	"NSAR-A":   {},
	"NSAR-B":   {},
}

// IsInvestmentCompanyForm reports whether headers of this form type render the
// series/class and merger blocks.
func IsInvestmentCompanyForm(formType string) bool {
	form := strings.ToUpper(strings.TrimSpace(formType))
	form = strings.TrimSuffix(form, "/A")
	_, ok := investmentCompanyForms[form]
	return ok
}
