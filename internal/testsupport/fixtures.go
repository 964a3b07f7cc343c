package testsupport

import "strings"

// Form4Header is an insider-transaction header with an owner-shaped and a
// company-shaped entity.
const Form4Header = `
<SUBMISSION>
<ACCESSION-NUMBER>0001127602-24-012345
<TYPE>4
<PUBLIC-DOCUMENT-COUNT>1
<PERIOD>20240315
<FILING-DATE>20240318
<DATE-OF-FILING-DATE-CHANGE>20240318
<REPORTING-OWNER>
<OWNER-DATA>
<CONFORMED-NAME>DOE JANE
<CIK>0001234567
</OWNER-DATA>
<FILING-VALUES>
<FORM-TYPE>4
<ACT>34
<FILE-NUMBER>001-12345
<FILM-NUMBER>24765432
</FILING-VALUES>
<MAIL-ADDRESS>
<STREET1>1 MAIN ST
<CITY>SPRINGFIELD
<STATE>IL
<ZIP>62701
</MAIL-ADDRESS>
</REPORTING-OWNER>
<ISSUER>
<COMPANY-DATA>
<CONFORMED-NAME>ACME CORP
<CIK>0000999999
<ASSIGNED-SIC>3711
<IRS-NUMBER>123456789
<STATE-OF-INCORPORATION>DE
<FISCAL-YEAR-END>1231
</COMPANY-DATA>
<BUSINESS-ADDRESS>
<STREET1>100 INDUSTRIAL WAY
<STREET2>SUITE 200
<CITY>WILMINGTON
<STATE>DE
<ZIP>19801
<PHONE>3025550100
</BUSINESS-ADDRESS>
<MAIL-ADDRESS>
<STREET1>PO BOX 42
<CITY>WILMINGTON
<STATE>DE
<ZIP>19801
</MAIL-ADDRESS>
<FORMER-COMPANY>
<FORMER-CONFORMED-NAME>ACME INC
<DATE-CHANGED>20010101
</FORMER-COMPANY>
<FORMER-COMPANY>
<FORMER-CONFORMED-NAME>ACME HOLDINGS
<DATE-CHANGED>19950612
</FORMER-COMPANY>
</ISSUER>
<DOCUMENT>
<TYPE>4
<SEQUENCE>1
<FILENAME>form4.xml
<DESCRIPTION>PRIMARY DOCUMENT
</DOCUMENT>
</SUBMISSION>
`

// NCSRHeader is an investment-company header with a series block, an empty
// ORGANIZATION-NAME and two documents.
const NCSRHeader = `
<SUBMISSION>
<ACCESSION-NUMBER>0001193125-24-000777
<TYPE>N-CSR
<PUBLIC-DOCUMENT-COUNT>2
<PERIOD>20231231
<FILING-DATE>20240301
<FILER>
<COMPANY-DATA>
<CONFORMED-NAME>EXAMPLE FUNDS TRUST
<CIK>0000111111
<ORGANIZATION-NAME>
<IRS-NUMBER>000000000
<STATE-OF-INCORPORATION>MA
<FISCAL-YEAR-END>1231
</COMPANY-DATA>
<FILING-VALUES>
<FORM-TYPE>N-CSR
<ACT>40
<FILE-NUMBER>811-01234
<FILM-NUMBER>24700001
</FILING-VALUES>
</FILER>
<SERIES-AND-CLASSES-CONTRACTS-DATA>
<EXISTING-SERIES-AND-CLASSES-CONTRACTS>
<SERIES>
<OWNER-CIK>0000111111
<SERIES-ID>S000001234
<SERIES-NAME>Example Growth Fund
<CLASS-CONTRACT>
<CLASS-CONTRACT-ID>C000004321
<CLASS-CONTRACT-NAME>Class A
<CLASS-CONTRACT-TICKER-SYMBOL>EXGAX
</CLASS-CONTRACT>
<CLASS-CONTRACT>
<CLASS-CONTRACT-ID>C000004322
<CLASS-CONTRACT-NAME>Institutional Class
</CLASS-CONTRACT>
</SERIES>
</EXISTING-SERIES-AND-CLASSES-CONTRACTS>
</SERIES-AND-CLASSES-CONTRACTS-DATA>
<DOCUMENT>
<TYPE>N-CSR
<SEQUENCE>1
<FILENAME>d123456dncsr.htm
<DESCRIPTION>EXAMPLE FUNDS TRUST
</DOCUMENT>
<DOCUMENT>
<TYPE>GRAPHIC
<SEQUENCE>2
<FILENAME>g123456g01.jpg
</DOCUMENT>
</SUBMISSION>
`

// SC13GHeader is a beneficial-ownership header that lists the subject
// company before the filer, with group members.
const SC13GHeader = `
<SUBMISSION>
<ACCESSION-NUMBER>0000950123-24-001122
<TYPE>SC 13G
<PUBLIC-DOCUMENT-COUNT>1
<FILING-DATE>20240214
<GROUP-MEMBERS>EXAMPLE CAPITAL GP LLC
<GROUP-MEMBERS>EXAMPLE CAPITAL PARTNERS LP
<SUBJECT-COMPANY>
<COMPANY-DATA>
<CONFORMED-NAME>WIDGET HOLDINGS INC
<CIK>0000888888
<ASSIGNED-SIC>3559
<IRS-NUMBER>987654321
<STATE-OF-INCORPORATION>DE
<FISCAL-YEAR-END>1231
</COMPANY-DATA>
<FILING-VALUES>
<FORM-TYPE>SC 13G
<ACT>34
<FILE-NUMBER>005-55555
<FILM-NUMBER>24612345
</FILING-VALUES>
<BUSINESS-ADDRESS>
<STREET1>200 FACTORY RD
<CITY>AUSTIN
<STATE>TX
<ZIP>78701
<PHONE>5125550199
</BUSINESS-ADDRESS>
</SUBJECT-COMPANY>
<FILED-BY>
<COMPANY-DATA>
<CONFORMED-NAME>EXAMPLE CAPITAL MANAGEMENT LLC
<CIK>0001777777
<IRS-NUMBER>000000000
<STATE-OF-INCORPORATION>NY
</COMPANY-DATA>
<FILING-VALUES>
<FORM-TYPE>SC 13G
</FILING-VALUES>
<MAIL-ADDRESS>
<STREET1>10 HARBOR PLAZA
<CITY>NEW YORK
<STATE>NY
<ZIP>10004
</MAIL-ADDRESS>
</FILED-BY>
<DOCUMENT>
<TYPE>SC 13G
<SEQUENCE>1
<FILENAME>sc13g.htm
<DESCRIPTION>SCHEDULE 13G
</DOCUMENT>
</SUBMISSION>
`

// HeaderLines splits a header constant into lines.
func HeaderLines(header string) []string {
	return strings.Split(strings.Trim(header, "\n"), "\n")
}

// FeedFile inserts a <TEXT> block with the matching body before each
// </DOCUMENT> of header, producing a dissemination file.
func FeedFile(header string, bodies ...string) string {
	lines := HeaderLines(header)
	out := make([]string, 0, len(lines)+3*len(bodies))
	doc := 0
	for _, line := range lines {
		if line == "</DOCUMENT>" && doc < len(bodies) {
			out = append(out, "<TEXT>", strings.TrimSuffix(bodies[doc], "\n"), "</TEXT>")
			doc++
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}
