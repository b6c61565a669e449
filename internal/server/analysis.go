package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/core"
	"github.com/joseph-ayodele/contract-extractor/internal/utils"
)

// Metadata keys accepted when a request body omits tenant or user.
const (
	mdTenantID  = "x-tenant-id"
	mdUserID    = "x-user-id"
	mdRequestID = "x-request-id"
)

type AnalysisService struct {
	UnimplementedAnalysisServiceServer
	orch   *core.Orchestrator
	logger *slog.Logger
}

func NewAnalysisService(orch *core.Orchestrator, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{orch: orch, logger: logger}
}

func (s *AnalysisService) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rawID := stringField(req, "document_id")
	if rawID == "" {
		s.logger.Error("submit request missing document_id")
		return nil, status.Error(codes.InvalidArgument, "document_id is required")
	}
	documentID, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Error("invalid document_id format for submit", "document_id", rawID, "error", err)
		return nil, status.Error(codes.InvalidArgument, "document_id must be a UUID")
	}
	tenantID := firstNonEmpty(stringField(req, "tenant_id"), fromMetadata(ctx, mdTenantID))
	userID := firstNonEmpty(stringField(req, "user_id"), fromMetadata(ctx, mdUserID))

	rec, err := s.orch.Submit(ctx, documentID, userID, tenantID)
	if err != nil {
		s.logger.Warn("submit failed", "document_id", documentID, "tenant_id", tenantID, "error", err)
		return nil, common.GRPCStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"analysis_id": rec.ID.String(),
		"status":      string(rec.Status),
	})
}

func (s *AnalysisService) GetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rawID := stringField(req, "analysis_id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Error("invalid analysis_id format", "analysis_id", rawID, "error", err)
		return nil, status.Error(codes.InvalidArgument, "analysis_id must be a UUID")
	}
	rec, err := s.orch.GetStatus(ctx, id)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	// another tenant's record is reported as missing
	tenantID := firstNonEmpty(stringField(req, "tenant_id"), fromMetadata(ctx, mdTenantID))
	if tenantID != "" && rec.TenantID != tenantID {
		return nil, common.GRPCStatus(common.ErrAnalysisNotFound)
	}
	out, err := utils.ToPBAnalysis(rec)
	if err != nil {
		s.logger.Error("encode analysis failed", "analysis_id", id, "error", err)
		return nil, status.Error(codes.Internal, "encode analysis")
	}
	return out, nil
}

func (s *AnalysisService) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenantID := firstNonEmpty(stringField(req, "tenant_id"), fromMetadata(ctx, mdTenantID))
	st := constants.AnalysisStatus(strings.ToUpper(stringField(req, "status")))
	limit := int(req.GetFields()["limit"].GetNumberValue())

	recs, err := s.orch.List(ctx, tenantID, st, limit)
	if err != nil {
		s.logger.Warn("list analyses failed", "tenant_id", tenantID, "error", err)
		return nil, common.GRPCStatus(err)
	}
	items, err := utils.ToPBAnalyses(recs)
	if err != nil {
		s.logger.Error("encode analyses failed", "tenant_id", tenantID, "error", err)
		return nil, status.Error(codes.Internal, "encode analyses")
	}
	return structpb.NewStruct(map[string]any{
		"analyses": items,
		"count":    len(items),
	})
}

func stringField(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func fromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
