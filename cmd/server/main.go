package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iquizu/internal/api"
	"iquizu/internal/app/service"
	"iquizu/internal/app/worker"
	"iquizu/internal/common"
	"iquizu/internal/common/security"
	"iquizu/internal/domain/recommend"
	"iquizu/internal/domain/repository"
	"iquizu/internal/domain/repository/memory"
	"iquizu/internal/platform/cache"
	"iquizu/internal/platform/config"
	"iquizu/internal/platform/database"
	"iquizu/internal/platform/gemini"
	"iquizu/internal/platform/local"
	"iquizu/internal/platform/mailer"
	"iquizu/internal/platform/queue"
	"iquizu/internal/platform/reporting"
	"iquizu/internal/platform/storage"
)

const codeVersion = "v2"

type repositories struct {
	txm         repository.TxManager
	users       repository.UserRepository
	classes     repository.ClassRepository
	quizzes     repository.QuizRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	archives    repository.ArchiveRepository
	jobs        repository.RecommendationJobRepository
}

func postgresRepositories() repositories {
	return repositories{
		txm:         repository.NewPgTxManager(database.DB),
		users:       repository.NewPgUserRepository(database.DB),
		classes:     repository.NewPgClassRepository(database.DB),
		quizzes:     repository.NewPgQuizRepository(database.DB),
		assignments: repository.NewPgAssignmentRepository(database.DB),
		submissions: repository.NewPgSubmissionRepository(database.DB),
		archives:    repository.NewPgArchiveRepository(database.DB),
		jobs:        repository.NewPgRecommendationJobRepository(database.DB),
	}
}

func memoryRepositories() repositories {
	store := memory.NewStore()
	return repositories{
		txm:         store,
		users:       memory.NewUserRepository(store),
		classes:     memory.NewClassRepository(store),
		quizzes:     memory.NewQuizRepository(store),
		assignments: memory.NewAssignmentRepository(store),
		submissions: memory.NewSubmissionRepository(store),
		archives:    memory.NewArchiveRepository(store),
		jobs:        memory.NewRecommendationJobRepository(store),
	}
}

// realtime groups the adapters that run on Redis or in-process.
type realtime struct {
	jobs interface {
		service.JobQueue
		worker.Queue
	}
	locker worker.Locker
	bus    service.EventBus
	tokens service.TokenStore
	cache  service.Cache
}

func redisRealtime() realtime {
	return realtime{
		jobs:   queue.NewJobQueue(queue.RDB, config.AppConfig.RecommendationQueueName),
		locker: queue.NewLocker(queue.RDB),
		bus:    queue.NewEventBus(queue.RDB),
		tokens: cache.NewTokenStore(queue.RDB),
		cache:  cache.NewJSONCache(queue.RDB, "iquizu:"),
	}
}

func localRealtime() realtime {
	kv := local.NewKV()
	return realtime{
		jobs:   local.NewJobQueue(),
		locker: local.NewLocker(),
		bus:    local.NewEventBus(),
		tokens: kv,
		cache:  kv,
	}
}

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Error reporting
	if reporting.Init(config.AppConfig.RollbarToken, config.AppConfig.AppEnv, codeVersion) {
		common.ReportError = reporting.Report
		defer reporting.Close()
	}

	// 3. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 4. Initialize Database
	var repos repositories
	switch config.AppConfig.DBDriver {
	case config.DBDriverMemory:
		log.Println("WARN: DB_DRIVER=memory, data will not survive a restart")
		repos = memoryRepositories()
	default:
		database.Connect()
		defer database.Close()
		if err := database.Migrate(); err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		fmt.Println("Database connected.")
		repos = postgresRepositories()
	}

	// 5. Initialize Redis
	var rt realtime
	if config.AppConfig.RedisAddr != "" {
		queue.ConnectRedis()
		defer queue.CloseRedis()
		fmt.Println("Redis connected.")
		rt = redisRealtime()
	} else {
		log.Println("WARN: REDIS_ADDR is empty, queue and live events run in-process")
		rt = localRealtime()
	}

	// 6. External adapters
	var mail service.Mailer = mailer.ConsoleMailer{}
	if config.AppConfig.SendgridAPIKey != "" {
		mail = mailer.NewSendgridMailer(config.AppConfig.SendgridAPIKey, config.AppConfig.MailFromName, config.AppConfig.MailFrom)
	}

	var files service.FileStore = storage.Discard{}
	if config.AppConfig.B2KeyID != "" {
		b2, err := storage.NewB2Storage(context.Background(), config.AppConfig.B2KeyID, config.AppConfig.B2AppKey, config.AppConfig.B2Bucket)
		if err != nil {
			log.Printf("WARN: B2 storage unavailable, classlist originals will not be kept: %v", err)
		} else {
			files = b2
		}
	}

	var gen recommend.Generator
	if config.AppConfig.GeminiAPIKey != "" {
		gen = gemini.NewClient(config.AppConfig.GeminiBaseURL, config.AppConfig.GeminiModel, config.AppConfig.GeminiAPIKey)
	} else {
		log.Println("WARN: GEMINI_API_KEY is empty, using rule-based recommendations")
	}

	// 7. Initialize Services
	authService := service.NewAuthService(repos.users, repos.txm, rt.tokens, mail, config.AppConfig.PasswordResetTTL, config.AppConfig.FrontendBaseURL)
	accountService := service.NewAccountService(repos.users, authService)
	services := api.Services{
		Auth:        authService,
		Accounts:    accountService,
		Analytics:   service.NewAnalyticsService(repos.users, repos.classes, repos.quizzes, repos.assignments, repos.submissions, rt.cache, config.AppConfig.AnalyticsCacheTTL),
		Classes:     service.NewClassService(repos.txm, repos.users, repos.classes, repos.archives, files, config.AppConfig.MaxClassesPerTeacher),
		Quizzes:     service.NewQuizService(repos.txm, repos.quizzes, repos.classes, repos.users, repos.assignments, repos.archives),
		Sessions:    service.NewSessionService(repos.txm, repos.quizzes, repos.classes, repos.assignments, rt.bus),
		Submissions: service.NewSubmissionService(repos.txm, repos.quizzes, repos.users, repos.assignments, repos.submissions, repos.jobs, rt.jobs, rt.bus),
	}

	if err := accountService.EnsureAdmin(context.Background(), config.AppConfig.AdminEmail, config.AppConfig.AdminPassword); err != nil {
		log.Fatalf("Could not create admin account: %v", err)
	}

	// 8. Initialize Recommendation Worker (as a goroutine)
	recWorker := worker.NewRecommendationWorker(rt.jobs, rt.locker, repos.jobs, repos.submissions, gen,
		time.Duration(config.AppConfig.RecommendationLockTTLSeconds)*time.Second)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		recWorker.Start(workerCtx)
		close(workerDone)
	}()
	fmt.Println("Recommendation worker started.")

	// 9. Initialize Router & HTTP Server
	server := newHTTPServer(":"+config.AppConfig.APIPort, api.NewRouter(services))

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown failed: %v", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Println("WARN: worker did not stop in time")
	}

	log.Println("Server and worker stopped gracefully.")
}
