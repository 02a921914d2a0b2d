// internal/api/websocket.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/LessonReel/internal/models"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongTimeout  = 60 * time.Second
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// JobProgressWebSocket 推送任务进度，任务结束后关闭连接
func (h *Handler) JobProgressWebSocket(c *gin.Context) {
	tracker, ok := h.Jobs.Get(c.Param("id"))
	if !ok {
		h.response.NotFound(c, MsgJobNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	h.Metrics.IncGauge("ws_connections")
	defer h.Metrics.DecGauge("ws_connections")

	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	// 读协程只处理 pong 与关闭帧
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case snapshot := <-updates:
			if err := writeSnapshot(conn, snapshot); err != nil {
				return
			}
			if snapshot.Status.IsTerminal() {
				closeNormally(conn)
				return
			}
		case <-tracker.Done():
			// 订阅通道满时终态可能被丢弃，以快照为准
			snapshot := tracker.Snapshot()
			if err := writeSnapshot(conn, snapshot); err == nil {
				closeNormally(conn)
			}
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot models.JobSnapshot) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snapshot)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}
