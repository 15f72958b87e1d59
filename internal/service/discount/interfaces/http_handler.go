package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"nexus-discount/internal/pkg/logger"
	"nexus-discount/internal/pkg/tracing"
	"nexus-discount/internal/service/discount/application"
	"nexus-discount/internal/service/discount/domain"
)

const serviceName = "discount-service"

// PricingAPI 是 HTTP 层用到的应用服务方法，*application.PricingService 满足该接口。
type PricingAPI interface {
	CalculateFinalPrice(ctx context.Context, req *application.CalculateRequest) (*application.PricingResult, error)
	QuickCalculate(ctx context.Context, req *application.CalculateRequest) (*application.PricingResult, error)
	PreviewDiscounts(ctx context.Context, req *application.CalculateRequest) (*application.PreviewResult, error)
	FindBestCombination(ctx context.Context, req *application.CalculateRequest) (*application.BestCombinationResult, error)
	SubmitForApproval(ctx context.Context, req *application.CalculateRequest) (*application.ApprovalDTO, error)
	ProcessApproval(ctx context.Context, approvalID string, req *application.DecisionRequest) (*application.ApprovalDTO, error)
	GetApprovalStatus(ctx context.Context, businessID, approvalID string) (*application.ApprovalDTO, error)
	GetAllocation(ctx context.Context, businessID, allocationID string) (*application.AllocationDTO, error)
	ValidateAllocation(ctx context.Context, req *application.ValidateAllocationRequest) (*application.AllocationCheckDTO, error)
	InvalidateBusiness(businessID string) int
}

// DiscountHandler 封装了 discount 服务的 HTTP 处理器
type DiscountHandler struct {
	service PricingAPI
	ws      http.HandlerFunc
	tracer  trace.Tracer
}

// NewDiscountHandler 创建处理器，ws 为审批人推送连接的入口，可以为 nil。
func NewDiscountHandler(service PricingAPI, ws http.HandlerFunc) *DiscountHandler {
	return &DiscountHandler{service: service, ws: ws, tracer: otel.Tracer(serviceName)}
}

// RegisterRoutes 在 ServeMux 上注册所有路由，/healthz 与 /metrics 由 bootstrap 注册。
func (h *DiscountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /pricing/calculate", h.traced("CalculateFinalPrice", h.handleCalculate))
	mux.HandleFunc("POST /pricing/quick", h.traced("QuickCalculate", h.handleQuick))
	mux.HandleFunc("POST /pricing/preview", h.traced("PreviewDiscounts", h.handlePreview))
	mux.HandleFunc("POST /pricing/best", h.traced("FindBestCombination", h.handleBest))
	mux.HandleFunc("POST /approvals", h.traced("SubmitForApproval", h.handleSubmitApproval))
	mux.HandleFunc("POST /approvals/{id}/decision", h.traced("ProcessApproval", h.handleDecision))
	mux.HandleFunc("GET /approvals/{id}", h.traced("GetApprovalStatus", h.handleGetApproval))
	mux.HandleFunc("POST /allocations/validate", h.traced("ValidateAllocation", h.handleValidateAllocation))
	mux.HandleFunc("GET /allocations/{id}", h.traced("GetAllocation", h.handleGetAllocation))
	mux.HandleFunc("POST /cache/invalidate", h.traced("InvalidateCache", h.handleInvalidate))
	if h.ws != nil {
		mux.HandleFunc("GET /ws/approvals", h.ws)
	}
}

// traced 提取上游 trace 上下文，开启 server span，并把带 trace_id 的 logger 放进 context。
func (h *DiscountHandler) traced(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(ctx, "http."+name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.Pattern),
		)
		if traceID := tracing.GetTraceIDFromContext(ctx); traceID != "" {
			ctx = logger.WithTraceID(ctx, traceID)
			w.Header().Set("X-Trace-Id", traceID)
		}
		next(w, r.WithContext(ctx))
	}
}

func (h *DiscountHandler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req application.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.CalculateFinalPrice(r.Context(), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleQuick(w http.ResponseWriter, r *http.Request) {
	var req application.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.QuickCalculate(r.Context(), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req application.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.PreviewDiscounts(r.Context(), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleBest(w http.ResponseWriter, r *http.Request) {
	var req application.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.FindBestCombination(r.Context(), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	var req application.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.SubmitForApproval(r.Context(), &req)
	respond(w, r, http.StatusCreated, resp, err)
}

func (h *DiscountHandler) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req application.DecisionRequest
	if !decode(w, r, &req) {
		return
	}
	req.Decision = domain.Decision(strings.ToLower(string(req.Decision)))
	resp, err := h.service.ProcessApproval(r.Context(), r.PathValue("id"), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetApprovalStatus(r.Context(), r.URL.Query().Get("business_id"), r.PathValue("id"))
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleValidateAllocation(w http.ResponseWriter, r *http.Request) {
	var req application.ValidateAllocationRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.ValidateAllocation(r.Context(), &req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetAllocation(r.Context(), r.URL.Query().Get("business_id"), r.PathValue("id"))
	respond(w, r, http.StatusOK, resp, err)
}

func (h *DiscountHandler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if strings.TrimSpace(businessID) == "" {
		respond(w, r, 0, nil, domain.ErrMissingBusinessID)
		return
	}
	n := h.service.InvalidateBusiness(businessID)
	respond(w, r, http.StatusOK, map[string]int{"invalidated": n}, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respond 根据错误类别返回不同的 HTTP 状态码
func respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err == nil {
		writeJSON(w, status, body)
		return
	}
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
