package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"quantflow/internal/handler/monitor"
	"quantflow/internal/model"
	"quantflow/pkg/logger"
)

// websocket实时推送：交易流水实时下发，引擎状态按固定间隔下发。
// 单交易对场景，不需要订阅协议，连上即收

type eventMessage struct {
	Type string      `json:"type"` // trade | status
	Data interface{} `json:"data"`
}

type clientConn struct {
	conn *websocket.Conn
	send chan []byte // 异步发送通道
}

type Handler struct {
	src monitor.EngineSource

	mu       sync.RWMutex
	clients  map[*clientConn]struct{}
	upgrader websocket.Upgrader

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewHandler(src monitor.EngineSource) *Handler {
	return &Handler{
		src:     src,
		clients: make(map[*clientConn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // 允许跨域
		},
		stopCh: make(chan struct{}),
	}
}

// ServeWS 升级连接并挂入广播集合
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	client := &clientConn{
		conn: conn,
		send: make(chan []byte, 100),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		// 摘除和关闭发送通道必须在同一个临界区内完成，
		// 否则广播协程可能往已关闭的通道写入
		h.mu.Lock()
		delete(h.clients, client)
		close(client.send)
		h.mu.Unlock()
		conn.Close()
	}()

	go client.writePump()
	// 阻塞读取，客户端断开时退出
	client.readPump()
}

// BroadcastTrade 实时下发一条交易流水，挂到引擎的OnTrade回调上
func (h *Handler) BroadcastTrade(rec model.TradeRecord) {
	h.broadcast(eventMessage{Type: "trade", Data: rec})
}

// StartStatusLoop 周期性下发引擎状态快照
func (h *Handler) StartStatusLoop(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.mu.RLock()
				idle := len(h.clients) == 0
				h.mu.RUnlock()
				if idle {
					continue
				}
				h.broadcast(eventMessage{Type: "status", Data: gin.H{
					"symbol":   h.src.Symbol(),
					"position": h.src.Position(),
					"account":  h.src.Account(),
					"risk":     h.src.RiskState(),
				}})
			case <-h.stopCh:
				return
			}
		}
	}()
}

func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *Handler) broadcast(msg eventMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Warnf("marshal ws event error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// 队列满就丢掉，慢客户端不能拖住广播
		}
	}
}

func (c *clientConn) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 只负责感知连接断开，不处理客户端消息
func (c *clientConn) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
