package constants

// DocType is the contract classification produced by the extractors.
type DocType string

const (
	DocTypeServiceAgreement DocType = "SERVICE_AGREEMENT"
	DocTypeNDA              DocType = "NDA"
	DocTypeEmployment       DocType = "EMPLOYMENT"
	DocTypeLease            DocType = "LEASE"
	DocTypePurchaseOrder    DocType = "PURCHASE_ORDER"
	DocTypeSOW              DocType = "SOW"
	DocTypeLicense          DocType = "LICENSE"
	DocTypeSubscription     DocType = "SUBSCRIPTION"
	DocTypeMSA              DocType = "MSA"
	DocTypeOther            DocType = "OTHER"
)

// DocTypes holds every DocType accepted from an AI response.
var DocTypes = []string{
	string(DocTypeServiceAgreement),
	string(DocTypeNDA),
	string(DocTypeEmployment),
	string(DocTypeLease),
	string(DocTypePurchaseOrder),
	string(DocTypeSOW),
	string(DocTypeLicense),
	string(DocTypeSubscription),
	string(DocTypeMSA),
	string(DocTypeOther),
}

// IsDocType reports whether s is a known DocType value.
func IsDocType(s string) bool {
	for _, t := range DocTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Field names shared by both extraction strategies, the confidence map and the AI prompt.
const (
	FieldVendor          = "vendor"
	FieldContractTitle   = "contract_title"
	FieldDocType         = "doc_type"
	FieldEffectiveDate   = "effective_date"
	FieldTerminationDate = "termination_date"
)

// Fields lists every extracted field in report order.
var Fields = []string{
	FieldVendor,
	FieldContractTitle,
	FieldDocType,
	FieldEffectiveDate,
	FieldTerminationDate,
}

// Strategy names the extractor that produced a bundle.
type Strategy string

const (
	StrategyAI    Strategy = "AI"
	StrategyRules Strategy = "RULES"
)
