package chatService

import (
	"CarelineGolang/internal/api/chat"
	chatRepository "CarelineGolang/internal/api/chat/repository"
	"CarelineGolang/internal/session"
	"CarelineGolang/pkg/gemini"
	"CarelineGolang/pkg/knowledge"
	"CarelineGolang/pkg/nlp"
	"CarelineGolang/pkg/smtp"
	"CarelineGolang/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IChatService interface {
	ProcessMessage(ctx context.Context, req chat.ChatRequest, channel string) (chat.ChatResponse, error)
	History(ctx context.Context, sessionID string, lastN int) (chat.HistoryResponse, error)
}

type chatService struct {
	log        *logrus.Logger
	sessions   session.IStore
	classifier nlp.IClassifier
	extractor  nlp.IExtractor
	langDetect nlp.ILanguageDetector
	knowledge  knowledge.IKnowledgeStore
	gemini     gemini.IGemini
	mailer     smtp.ItfSmtp
	chatRepo   chatRepository.Repository
	utils      utils.IUtils
	formatter  *replyFormatter
}

func NewChatService(
	log *logrus.Logger,
	sessions session.IStore,
	classifier nlp.IClassifier,
	extractor nlp.IExtractor,
	langDetect nlp.ILanguageDetector,
	knowledgeStore knowledge.IKnowledgeStore,
	geminiClient gemini.IGemini,
	mailer smtp.ItfSmtp,
	chatRepo chatRepository.Repository,
	utils utils.IUtils,
) IChatService {
	return &chatService{
		log:        log,
		sessions:   sessions,
		classifier: classifier,
		extractor:  extractor,
		langDetect: langDetect,
		knowledge:  knowledgeStore,
		gemini:     geminiClient,
		mailer:     mailer,
		chatRepo:   chatRepo,
		utils:      utils,
		formatter:  newReplyFormatter(log),
	}
}
