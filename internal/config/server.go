package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"CarelineGolang/database/postgres"
	chatHandler "CarelineGolang/internal/api/chat/handler"
	chatRepository "CarelineGolang/internal/api/chat/repository"
	chatService "CarelineGolang/internal/api/chat/service"
	kbHandler "CarelineGolang/internal/api/kb/handler"
	kbService "CarelineGolang/internal/api/kb/service"
	whatsappHandler "CarelineGolang/internal/api/whatsapp/handler"
	whatsappService "CarelineGolang/internal/api/whatsapp/service"
	"CarelineGolang/internal/middleware"
	"CarelineGolang/internal/session"
	"CarelineGolang/pkg/gemini"
	"CarelineGolang/pkg/knowledge"
	"CarelineGolang/pkg/nlp"
	"CarelineGolang/pkg/redis"
	"CarelineGolang/pkg/s3"
	"CarelineGolang/pkg/smtp"
	"CarelineGolang/pkg/utils"
	"CarelineGolang/pkg/whatsapp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"golang.org/x/text/language"
)

type ServerOption func(*Server) error

type Server struct {
	engine          *fiber.App
	db              *sqlx.DB
	log             *logrus.Logger
	middleware      middleware.Middleware
	validator       *validator.Validate
	utils           utils.IUtils
	handlers        []handler
	redisServer     redis.IRedis
	smtpMailer      smtp.ItfSmtp
	whatsappClient  whatsapp.IWhatsappSender
	geminiClient    gemini.IGemini
	s3Client        s3.ItfS3
	knowledgeStore  knowledge.IKnowledgeStore
	knowledgeLoader *knowledge.Loader
	sessionStore    session.IStore
	classifier      nlp.IClassifier
	extractor       nlp.IExtractor
	langDetect      nlp.ILanguageDetector
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithSMTPMailer(smtpMailer smtp.ItfSmtp) ServerOption {
	return func(s *Server) error {
		s.smtpMailer = smtpMailer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithWhatsappClient() ServerOption {
	return func(s *Server) error {
		client, err := whatsapp.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
			}
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		s.whatsappClient = client
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithKnowledgeStore() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before knowledge store")
		}

		dataDir := os.Getenv("KNOWLEDGE_DATA_DIR")
		if dataDir == "" {
			dataDir = "./storage/knowledge"
		}

		store, err := knowledge.New(dataDir, knowledge.NewEmbeddingFuncFromEnv(), s.log)
		if err != nil {
			s.log.Errorf("Failed to initialize knowledge store: %v", err)
			return fmt.Errorf("failed to create knowledge store: %w", err)
		}

		s.knowledgeStore = store
		s.knowledgeLoader = knowledge.NewLoader(store, s.log)
		return nil
	}
}

func WithSessionStore() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before session store")
		}

		ttl := session.DefaultTTL
		if raw := os.Getenv("SESSION_TIMEOUT"); raw != "" {
			seconds, err := strconv.Atoi(raw)
			if err != nil || seconds <= 0 {
				return fmt.Errorf("invalid SESSION_TIMEOUT %q", raw)
			}
			ttl = time.Duration(seconds) * time.Second
		}

		s.sessionStore = session.New(ttl, s.log)
		return nil
	}
}

func WithNLP() ServerOption {
	return func(s *Server) error {
		mappings, err := loadIntentMappings()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to load intent mappings: %v", err)
			}
			return err
		}

		s.classifier = nlp.NewClassifier(mappings)
		s.extractor = nlp.NewExtractor()
		s.langDetect = nlp.NewLanguageDetector(language.English)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

// loadIntentMappings reads INTENTS_FILE when set; a nil return keeps the
// built-in intent configuration.
func loadIntentMappings() (map[string]nlp.IntentMappingData, error) {
	path := os.Getenv("INTENTS_FILE")
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intents file: %w", err)
	}

	var mappings map[string]nlp.IntentMappingData
	if err := jsoniter.Unmarshal(raw, &mappings); err != nil {
		return nil, fmt.Errorf("failed to parse intents file: %w", err)
	}

	return mappings, nil
}

func (s *Server) RegisterHandler() {
	// Chat Domain
	var chatRepo chatRepository.Repository
	if s.db != nil {
		chatRepo = chatRepository.New(s.db, s.log)
	}
	chatServices := chatService.NewChatService(
		s.log, s.sessionStore, s.classifier, s.extractor, s.langDetect,
		s.knowledgeStore, s.geminiClient, s.smtpMailer, chatRepo, s.utils,
	)
	chatHandlers := chatHandler.New(s.log, s.validator, s.middleware, chatServices)

	// WhatsApp Domain
	whatsappServices := whatsappService.NewWebhookService(s.log, chatServices, s.whatsappClient, s.redisServer, s.utils)
	whatsappHandlers := whatsappHandler.New(s.log, s.validator, s.middleware, whatsappServices)

	// Knowledge Base Domain
	kbServices := kbService.NewKbService(s.log, s.classifier, s.knowledgeLoader, s.s3Client)
	kbHandlers := kbHandler.New(s.log, s.validator, s.middleware, kbServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, chatHandlers, whatsappHandlers, kbHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	s.autoloadCorpus()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		s.shutdownDependencies()
		return err
	}

	return nil
}

// autoloadCorpus seeds the vector store from the local corpus directory at
// startup so a fresh deployment can answer grounded questions before any
// admin reindex.
func (s *Server) autoloadCorpus() {
	if s.knowledgeLoader == nil || os.Getenv("KNOWLEDGE_AUTOLOAD") != "true" {
		return
	}

	dir := os.Getenv("KNOWLEDGE_DIR")
	if dir == "" {
		dir = "./data/corpus"
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := s.knowledgeLoader.LoadDir(ctx, dir)
		if err != nil {
			s.log.Errorf("Failed to autoload knowledge corpus: %v", err)
			return
		}
		s.log.Infof("Loaded %d knowledge documents from %s", count, dir)
	}()
}

func (s *Server) shutdownDependencies() {
	if s.whatsappClient != nil {
		s.whatsappClient.Disconnect()
	}
	if s.sessionStore != nil {
		s.sessionStore.Close()
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})

	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		status := fiber.Map{
			"status":          "healthy",
			"active_sessions": 0,
			"knowledge_docs":  0,
		}

		if s.sessionStore != nil {
			status["active_sessions"] = s.sessionStore.Len()
		}
		if s.knowledgeStore != nil {
			status["knowledge_docs"] = s.knowledgeStore.Count()
		}
		if s.whatsappClient != nil {
			status["whatsapp_connected"] = s.whatsappClient.IsConnected()
		}

		return ctx.JSON(status)
	})
}
