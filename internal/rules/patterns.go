package rules

import (
	"regexp"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// Confidence levels assigned by the rules.
const (
	BaselineConfidence     = 0.3
	GivenTitleConfidence   = 0.6
	ScannedTitleConfidence = 0.5
	DocTypeConfidence      = 0.7
	VendorConfidence       = 0.6
	StatedDateConfidence   = 0.7
	CuedDateConfidence     = 0.65
	InferredDateConfidence = 0.6
	DurationTermConfidence = 0.6
	titleScanLines         = 10
	titleMinLen            = 5
	titleMaxLen            = 100
	vendorMinLenExclusive  = 2
	vendorMaxLenExclusive  = 50
)

type docTypeRule struct {
	name    string
	re      *regexp.Regexp
	docType constants.DocType
}

// docTypeRules are evaluated in order; the first match wins.
var docTypeRules = []docTypeRule{
	{"service_agreement", regexp.MustCompile(`(?i)\bservices?\s+agreement\b`), constants.DocTypeServiceAgreement},
	{"nda", regexp.MustCompile(`(?i)\b(?:non[-\s]?disclosure|confidentiality)\s+agreement\b|\bNDA\b`), constants.DocTypeNDA},
	{"employment", regexp.MustCompile(`(?i)\bemployment\s+(?:agreement|contract)\b|\boffer\s+letter\b`), constants.DocTypeEmployment},
	{"lease", regexp.MustCompile(`(?i)\b(?:lease|rental)\s+agreement\b|\blease\b`), constants.DocTypeLease},
	{"purchase_order", regexp.MustCompile(`(?i)\bpurchase\s+order\b`), constants.DocTypePurchaseOrder},
	{"sow", regexp.MustCompile(`(?i)\bstatement\s+of\s+work\b|\bSOW\b`), constants.DocTypeSOW},
	{"license", regexp.MustCompile(`(?i)\blicen[cs]e\s+agreement\b|\bend[-\s]user\s+licen[cs]e\b|\bEULA\b`), constants.DocTypeLicense},
	{"subscription", regexp.MustCompile(`(?i)\bsubscription\s+(?:agreement|terms|order)\b`), constants.DocTypeSubscription},
	{"msa", regexp.MustCompile(`(?i)\bmaster\s+(?:services?\s+)?agreement\b|\bMSA\b`), constants.DocTypeMSA},
}

const (
	nameWord     = `[A-Z][A-Za-z0-9&'\-]*`
	entityName   = nameWord + `(?:[ \t]+` + nameWord + `){0,5}`
	entitySuffix = `(?i:Inc|LLC|L\.L\.C|Ltd|Limited|Corp|Corporation|Co|Company|LLP|LP|PLC|GmbH|AG|SA)\b\.?`
	legalEntity  = `(\b` + entityName + `,?[ \t]+` + entitySuffix + `)`
	vendorRoles  = `(?:Vendor|Supplier|Provider|Service\s+Provider|Contractor|Consultant|Licensor|Seller)`
)

type vendorRule struct {
	name string
	re   *regexp.Regexp
}

// vendorRules capture a legal entity name near a cue phrase, most specific cue first.
var vendorRules = []vendorRule{
	{"role_parenthetical", regexp.MustCompile(legalEntity + `[^()\n]{0,80}?\(\s*(?:the\s+)?["“']?` + vendorRoles + `["”']?\s*\)`)},
	{"role_label", regexp.MustCompile(`(?m)^\s*` + vendorRoles + `\s*(?:Name)?\s*:\s*` + legalEntity)},
	{"between", regexp.MustCompile(`(?i:between)\s+` + legalEntity)},
	{"corporation", regexp.MustCompile(legalEntity + `,?\s+an?\s+(?:[A-Z][a-z]+\s+)?(?i:corporation|limited\s+liability\s+company|company)\b`)},
}

const (
	monthName   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	numericDate = `\d{1,4}[/-]\d{1,2}[/-]\d{2,4}`
	textualMDY  = monthName + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`
	textualDMY  = `\d{1,2}(?:st|nd|rd|th)?\s+(?:day\s+)?(?:of\s+)?` + monthName + `,?\s+\d{4}`
	dateToken   = `(` + numericDate + `|` + textualMDY + `|` + textualDMY + `)`
)

var (
	reTextualMDY = regexp.MustCompile(`(?i)^(` + monthName + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)
	reTextualDMY = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+(?:day\s+)?(?:of\s+)?(` + monthName + `),?\s+(\d{4})$`)
)

type dateRule struct {
	name       string
	re         *regexp.Regexp
	confidence float64
}

var effectiveDateRules = []dateRule{
	{"effective_date", regexp.MustCompile(`(?i)\beffective\s+date\b\s*(?:of\s+this\s+agreement\s+)?(?:is|shall\s+be|:|-)?\s*(?:as\s+of\s+)?` + dateToken), StatedDateConfidence},
	{"effective_as_of", regexp.MustCompile(`(?i)\beffective\s+(?:as\s+of|on|from)\s+` + dateToken), StatedDateConfidence},
	{"commencement_date", regexp.MustCompile(`(?i)\bcommencement\s+date\b\s*(?:is|shall\s+be|:|-)?\s*` + dateToken), StatedDateConfidence},
	{"commences", regexp.MustCompile(`(?i)\bcommenc(?:es|ing|e)\s+(?:on\s+)?` + dateToken), CuedDateConfidence},
	{"entered_into", regexp.MustCompile(`(?i)\bentered\s+into\s+(?:as\s+of\s+|on\s+)?(?:this\s+)?` + dateToken), InferredDateConfidence},
	{"executed_on", regexp.MustCompile(`(?i)\bexecuted\s+(?:as\s+of\s+|on\s+)` + dateToken), InferredDateConfidence},
	{"made_on", regexp.MustCompile(`(?i)\b(?:made|dated)\s+(?:as\s+of\s+|on\s+)?(?:this\s+)?` + dateToken), InferredDateConfidence},
}

var terminationDateRules = []dateRule{
	{"termination_date", regexp.MustCompile(`(?i)\b(?:termination|expiration|expiry|end)\s+date\b\s*(?:is|shall\s+be|:|-)?\s*` + dateToken), StatedDateConfidence},
	{"expires_on", regexp.MustCompile(`(?i)\b(?:expires?|terminates?|ends?)\s+(?:on\s+)?` + dateToken), CuedDateConfidence},
	{"until", regexp.MustCompile(`(?i)\b(?:until|through)\s+` + dateToken), InferredDateConfidence},
}

// reDurationTerm captures "term ... is/be/of N unit(s)" where N is digits, a number word,
// or "word (digits)".
var reDurationTerm = regexp.MustCompile(`(?i)\bterm\b[^.\n]{0,60}?\b(?:is|be|of)\s+(?:a\s+period\s+of\s+)?(?:(\d{1,3})|([a-z]+(?:-[a-z]+)?)(?:\s*\((\d{1,3})\))?)\s+(day|week|month|year)s?\b`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7, "eight": 8,
	"nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "eighteen": 18, "twenty": 20,
	"twenty-four": 24, "thirty": 30, "thirty-six": 36, "sixty": 60, "ninety": 90,
}

// reTitleArtifact matches lines that are never a document title.
var reTitleArtifact = regexp.MustCompile(`(?i)^(?:page\s+\d+(?:\s+of\s+\d+)?|[-–\s]*\d+[-–\s]*|\d+\s*/\s*\d+|(?:©|\(c\)|copyright).*|all\s+rights\s+reserved\.?)$`)

var reHasLetter = regexp.MustCompile(`[A-Za-z]`)
