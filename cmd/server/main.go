// PaiKe 排课引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/internal/database"
	"github.com/paike/paike/internal/handler"
	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/internal/middleware"
	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/engine"
	"github.com/paike/paike/pkg/engine/optimizer"
	"github.com/paike/paike/pkg/engine/payload"
	"github.com/paike/paike/pkg/engine/solver"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	fmt.Printf("PaiKe 排课引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库可选：连接失败时禁用课程目录与历史课表持久化，引擎照常工作
	var db *database.DB
	var (
		timetableRepo  *repository.TimetableRepository
		courseRepo     *repository.CourseRepository
		constraintRepo *repository.ConstraintRepository
		teacherRepo    *repository.TeacherRepository
	)
	if db, err = database.New(&cfg.Database); err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，课程目录与历史课表持久化已禁用")
		db = nil
	} else {
		defer db.Close()
		timetableRepo = repository.NewTimetableRepository(db)
		courseRepo = repository.NewCourseRepository(db)
		constraintRepo = repository.NewConstraintRepository(db)
		teacherRepo = repository.NewTeacherRepository(db)
	}

	// 创建引擎
	eng := engine.New(engine.Options{
		Backend: solver.Backend(cfg.Engine.Backend),
		Weights: payload.Weights{
			Utilization: 1,
			AdminSoft:   cfg.Engine.AdminSoftWeight,
			TeacherSoft: cfg.Engine.TeacherSoftWeight,
			DefaultSoft: cfg.Engine.DefaultSoftWeight,
		},
		Optimizer: &optimizer.Config{
			MaxIterations: cfg.Engine.MaxSwapIterations,
			Seed:          cfg.Engine.Seed,
			VarietyWeight: cfg.Engine.VarietyWeight,
			RepeatPenalty: cfg.Engine.RepeatPenalty,
		},
	})
	if eng.IsFallback() {
		logger.Warn().Str("strategy", eng.Strategy()).Msg("优化求解器不可用，使用贪心降级策略")
	}

	defaults := model.DefaultGenerationConfig()
	defaults.PeriodsPerDay = cfg.Engine.PeriodsPerDay
	defaults.LunchPeriod = cfg.Engine.LunchPeriod
	defaults.TimeLimit = cfg.Engine.TimeLimit
	defaults.MaxSwapIterations = cfg.Engine.MaxSwapIterations
	defaults.Seed = cfg.Engine.Seed

	// 创建处理器
	timetableHandler := handler.NewTimetableHandler(eng, defaults, timetableRepo)
	if courseRepo != nil {
		timetableHandler = timetableHandler.WithCatalog(courseRepo, constraintRepo)
	}
	statsHandler := handler.NewStatsHandler(defaults)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok", "service": cfg.App.Name, "strategy": eng.Strategy()}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				status["database"] = "down"
			} else {
				status["database"] = "up"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "PaiKe 排课引擎 API v1",
			"endpoints": {
				"timetable": {
					"generate": "POST /api/v1/timetable/generate",
					"validate": "POST /api/v1/timetable/validate"
				},
				"timetables": {
					"list": "GET /api/v1/timetables",
					"get": "GET /api/v1/timetables/{id}",
					"active": "GET /api/v1/timetables/active",
					"activate": "POST /api/v1/timetables/{id}/activate"
				},
				"catalog": {
					"courses": "GET|POST /api/v1/courses, GET|PUT|DELETE /api/v1/courses/{id}",
					"constraints": "GET|POST /api/v1/constraints, GET|PUT|DELETE /api/v1/constraints/{id}",
					"teachers": "GET|POST /api/v1/teachers, GET|PUT|DELETE /api/v1/teachers/{id}"
				},
				"stats": {
					"analyze": "POST /api/v1/stats/analyze"
				}
			}
		}`))
	})

	// 课表生成 API
	mux.HandleFunc("/api/v1/timetable/generate", timetableHandler.Generate)

	// 课表验证 API
	mux.HandleFunc("/api/v1/timetable/validate", timetableHandler.Validate)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/analyze", statsHandler.Analyze)

	// 课程目录与历史课表 API（需要数据库）
	if db != nil {
		courseHandler := handler.NewCourseHandler(courseRepo, teacherRepo)
		mux.HandleFunc("/api/v1/courses", courseHandler.Collection)
		mux.HandleFunc("/api/v1/courses/", courseHandler.Item)

		constraintHandler := handler.NewConstraintHandler(constraintRepo)
		mux.HandleFunc("/api/v1/constraints", constraintHandler.Collection)
		mux.HandleFunc("/api/v1/constraints/", constraintHandler.Item)

		teacherHandler := handler.NewTeacherHandler(teacherRepo)
		mux.HandleFunc("/api/v1/teachers", teacherHandler.Collection)
		mux.HandleFunc("/api/v1/teachers/", teacherHandler.Item)

		historyHandler := handler.NewHistoryHandler(timetableRepo)
		mux.HandleFunc("/api/v1/timetables", historyHandler.List)
		mux.HandleFunc("/api/v1/timetables/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				historyHandler.Activate(w, r)
				return
			}
			historyHandler.Get(w, r)
		})
	}

	// ========================================
	// 监控端点
	// ========================================

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件执行顺序：recovery -> requestID -> auth -> rateLimit -> cors -> logging -> handler
	globalRateLimiter = NewRateLimiter(cfg.API.RateLimit)
	auth := middleware.APIKeyAuth(cfg.API.Key, []string{"/health", "/version"})
	root := middleware.Recovery(requestIDMiddleware(auth(
		rateLimitMiddleware(corsMiddleware(middleware.SecurityHeaders(loggingMiddleware(mux)))))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("strategy", eng.Strategy()).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequest(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

var globalRateLimiter = NewRateLimiter(100) // Load失败前的兜底值，启动时按配置重建

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !globalRateLimiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
