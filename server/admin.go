package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionClosed) {
		http.Error(w, "session closed", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// HandleRTTs 按身份输出平均往返时延（毫秒）
// GET /rtts
func HandleRTTs(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rtts, err := s.RTTs(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		// 允许跨域，方便浏览器面板轮询
		w.Header().Set("Access-Control-Allow-Origin", "*")
		writeJSON(w, http.StatusOK, rtts)
	}
}

// HandleState 导出当前世界状态
// GET /state
func HandleState(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		world, err := s.World(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, world)
	}
}

// HandleMetrics 输出会话计数器
// GET /metrics
func HandleMetrics(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		world, err := s.World(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"players": world.Len(),
			"metrics": s.Metrics().Snapshot(),
		})
	}
}

// HandleAdminConfig 读取或修改可热调的会话参数
// GET /admin/config 返回当前值；POST /admin/config 携带 JSON，
// 只修改出现的字段
func HandleAdminConfig(s *Session) http.HandlerFunc {
	type current struct {
		HitDelayMs      int `json:"hitDelayMs"`
		ProbeIntervalMs int `json:"probeIntervalMs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var t Tuning
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if err := t.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cfg, err := s.Tune(r.Context(), t)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, current{HitDelayMs: cfg.HitDelayMs, ProbeIntervalMs: cfg.ProbeIntervalMs})
	}
}

// Routes 在 mux 上注册全部路由
func Routes(mux *http.ServeMux, s *Session, cfg Config) {
	mux.Handle("/ws", NewWSHandler(s, cfg))
	mux.HandleFunc("/rtts", HandleRTTs(s))
	mux.HandleFunc("/state", HandleState(s))
	mux.HandleFunc("/metrics", HandleMetrics(s))
	mux.HandleFunc("/admin/config", HandleAdminConfig(s))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}
