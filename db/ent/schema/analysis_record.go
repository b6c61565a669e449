package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/db/ent/schema/utils"
)

// AnalysisRecord is the durable state of one extraction request.
type AnalysisRecord struct{ ent.Schema }

func (AnalysisRecord) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "analysis_record"},
	}
}

func (AnalysisRecord) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("document_id", uuid.UUID{}).Immutable(),
		field.String("tenant_id").NotEmpty().MaxLen(64).Immutable(),
		field.String("user_id").NotEmpty().MaxLen(64).Immutable(),
		field.String("status").
			Default(string(constants.AnalysisStatusPending)).
			Validate(utils.EnumValidator(constants.AnalysisStatuses...)),
		field.String("vendor").Optional().Nillable(),
		field.String("contract_title").Optional().Nillable(),
		field.String("doc_type").Optional().Nillable().
			Validate(utils.EnumValidator(constants.DocTypes...)),
		// ISO-8601 calendar dates (YYYY-MM-DD).
		field.String("effective_date").Optional().Nillable().MaxLen(10),
		field.String("termination_date").Optional().Nillable().MaxLen(10),
		field.JSON("confidence", map[string]float64{}).Optional(),
		field.String("strategy").Optional().Nillable().
			Validate(utils.EnumValidator(string(constants.StrategyAI), string(constants.StrategyRules))),
		field.UUID("suggested_contract_id", uuid.UUID{}).Optional().Nillable(),
		field.String("error_message").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.JSON("raw_result", []byte{}).Optional(),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (AnalysisRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "status", "created_at"),
		index.Fields("document_id"),
		index.Fields("status"),
	}
}
