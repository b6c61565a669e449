package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

// Contract is an existing agreement that new analyses may be matched to by vendor.
type Contract struct{ ent.Schema }

func (Contract) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "contract"},
	}
}

func (Contract) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("tenant_id").NotEmpty().MaxLen(64).Immutable(),
		field.String("counterparty_name").NotEmpty(),
		field.String("title").Optional(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Contract) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "counterparty_name"),
	}
}
