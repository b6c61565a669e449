package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

type ContractRepository interface {
	Create(ctx context.Context, c *entity.Contract) (*entity.Contract, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Contract, error)
	// FindByCounterpartySubstring returns the oldest contract whose counterparty name and
	// the given name contain one another, ignoring case. It returns nil when nothing matches.
	FindByCounterpartySubstring(ctx context.Context, tenantID, name string) (*uuid.UUID, error)
}

var contractColumns = []string{"id", "tenant_id", "counterparty_name", "title", "created_at"}

type contractRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewContractRepository(db *DB, logger *slog.Logger) ContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &contractRepo{db: db, logger: logger}
}

func (r *contractRepo) Create(ctx context.Context, c *entity.Contract) (*entity.Contract, error) {
	out := *c
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	query, args := r.db.builder().Insert(tableContract).
		Columns(contractColumns...).
		Values(out.ID, out.TenantID, out.CounterpartyName, out.Title, out.CreatedAt).
		Query()
	if _, err := r.db.exec(ctx, query, args); err != nil {
		r.logger.Error("failed to create contract", "tenant_id", out.TenantID, "counterparty", out.CounterpartyName, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.logger.Info("contract created", "contract_id", out.ID, "tenant_id", out.TenantID)
	return &out, nil
}

func (r *contractRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Contract, error) {
	out, err := r.list(ctx, entsql.EQ("tenant_id", tenantID), 0)
	if err != nil {
		r.logger.Error("failed to list contracts", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *contractRepo) FindByCounterpartySubstring(ctx context.Context, tenantID, name string) (*uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	// counterparty_name contains the extracted vendor
	hits, err := r.list(ctx, entsql.And(
		entsql.EQ("tenant_id", tenantID),
		entsql.ContainsFold("counterparty_name", name),
	), 1)
	if err != nil {
		r.logger.Error("failed to match contract by counterparty", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	if len(hits) > 0 {
		return &hits[0].ID, nil
	}

	// extracted vendor contains the counterparty_name, e.g. "Acme Corp" vs "Acme"
	all, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(name)
	for _, c := range all {
		cp := strings.ToLower(strings.TrimSpace(c.CounterpartyName))
		if cp != "" && strings.Contains(lower, cp) {
			id := c.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (r *contractRepo) list(ctx context.Context, p *entsql.Predicate, limit int) ([]*entity.Contract, error) {
	b := r.db.builder()
	sel := b.Select(contractColumns...).From(b.Table(tableContract)).Where(p).OrderBy(entsql.Asc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	var out []*entity.Contract
	err := r.db.query(ctx, query, args, func(rows *entsql.Rows) error {
		var c entity.Contract
		var title sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.CounterpartyName, &title, &c.CreatedAt); err != nil {
			return err
		}
		c.Title = title.String
		out = append(out, &c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
