package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// перевод строки внутри значения id разорвал бы кадр на два
var sseFieldSanitizer = strings.NewReplacer("\n", " ", "\r", " ")

// streamCommandes отдаёт живую ленту заказов в виде Server-Sent Events
// каждый кадр: id — имя клиента из записи, event — фиксированный тег "message",
// data — JSON-конверт события мутации
// поток не завершается сам: соединение живёт до отключения клиента
// или до глобальной остановки раздачи
func (h *Handler) streamCommandes(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.log.Info("sse client connected", slog.String("remote", r.RemoteAddr))

	for evt := range h.streamer.Stream(r.Context()) {
		data, err := json.Marshal(evt)
		if err != nil {
			// сбой сериализации одного события не виден клиенту: кадр просто пропускается
			h.log.Error("failed to marshal sse event", slog.String("error", err.Error()))
			continue
		}

		fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n",
			sseFieldSanitizer.Replace(evt.Entity.Client), data)
		flusher.Flush()
	}

	h.log.Info("sse client disconnected", slog.String("remote", r.RemoteAddr))
}
