package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"nexus-discount/internal/service/discount/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// ApprovalEvent 是推送给审批人的消息。
type ApprovalEvent struct {
	Type               string                `json:"type"`
	ApprovalID         string                `json:"approvalId"`
	BusinessID         string                `json:"businessId"`
	CustomerID         string                `json:"customerId,omitempty"`
	Status             domain.ApprovalStatus `json:"status"`
	DiscountAmount     decimal.Decimal       `json:"discountAmount"`
	DiscountPercentage decimal.Decimal       `json:"discountPercentage"`
	RequestedBy        string                `json:"requestedBy,omitempty"`
	ApprovedBy         string                `json:"approvedBy,omitempty"`
	Reason             string                `json:"reason,omitempty"`
	OccurredAt         time.Time             `json:"occurredAt"`
}

// ApprovalHub 维护审批人的 WebSocket 连接，按商户分组，并实现 port.ApprovalNotifier。
type ApprovalHub struct {
	clients    map[string]map[*approverClient]struct{}
	register   chan *approverClient
	unregister chan *approverClient
	done       chan struct{}
	lock       sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewApprovalHub() *ApprovalHub {
	return &ApprovalHub{
		clients:    make(map[string]map[*approverClient]struct{}),
		register:   make(chan *approverClient),
		unregister: make(chan *approverClient),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run 处理连接的注册和注销，ctx 结束时关闭所有连接。
func (h *ApprovalHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.lock.Lock()
			if h.clients[c.businessID] == nil {
				h.clients[c.businessID] = make(map[*approverClient]struct{})
			}
			h.clients[c.businessID][c] = struct{}{}
			h.lock.Unlock()
			zlog.Info().Str("business_id", c.businessID).Msg("approver connected")
		case c := <-h.unregister:
			h.remove(c)
			zlog.Info().Str("business_id", c.businessID).Msg("approver disconnected")
		case <-ctx.Done():
			h.lock.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*approverClient]struct{})
			h.lock.Unlock()
			return
		}
	}
}

func (h *ApprovalHub) remove(c *approverClient) {
	h.lock.Lock()
	defer h.lock.Unlock()
	set, ok := h.clients[c.businessID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.businessID)
	}
}

// Clients 返回某商户当前在线的审批人连接数。
func (h *ApprovalHub) Clients(businessID string) int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients[businessID])
}

// NotifyApproval 把审批单变化广播给该商户的所有在线审批人。
// 没有人在线不算错误；发送缓冲已满的连接会丢掉这条消息。
func (h *ApprovalHub) NotifyApproval(_ context.Context, req *domain.ApprovalRequest) error {
	occurred := req.UpdatedAt
	if req.DecidedAt != nil {
		occurred = *req.DecidedAt
	}
	payload, err := json.Marshal(ApprovalEvent{
		Type:               "discount.approval",
		ApprovalID:         req.ID,
		BusinessID:         req.BusinessID,
		CustomerID:         req.CustomerID,
		Status:             req.Status,
		DiscountAmount:     req.DiscountAmount,
		DiscountPercentage: req.DiscountPercentage,
		RequestedBy:        req.RequestedBy,
		ApprovedBy:         req.ApprovedBy,
		Reason:             req.Reason,
		OccurredAt:         occurred,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal approval event: %w", err)
	}

	h.lock.RLock()
	defer h.lock.RUnlock()
	dropped := 0
	for c := range h.clients[req.BusinessID] {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("approval event dropped for %d slow approver connections", dropped)
	}
	return nil
}

// ServeWS 把请求升级为 WebSocket，business_id 必填。
func (h *ApprovalHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &approverClient{hub: h, conn: conn, send: make(chan []byte, sendBuffer), businessID: businessID}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// approverClient 是一个审批人连接。
type approverClient struct {
	hub        *ApprovalHub
	conn       *websocket.Conn
	send       chan []byte
	businessID string
}

// readPump 只处理心跳，连接断开时注销。
func (c *approverClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *approverClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
