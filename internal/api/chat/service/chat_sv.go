package chatService

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"CarelineGolang/internal/api/chat"
	"CarelineGolang/internal/entity"
	"CarelineGolang/internal/session"
	contextPkg "CarelineGolang/pkg/context"
	"CarelineGolang/pkg/empathy"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	maxMessageRunes  = 4096
	minConfidence    = 0.2
	historyWindow    = 4
	retrievalTopK    = 3
	classifyTimeout  = 3 * time.Second
	extractTimeout   = 2 * time.Second
	generateTimeout  = 12 * time.Second
	archiveTimeout   = 5 * time.Second
	apologeticAnswer = "I'm sorry, I'm having trouble answering right now. Please try again in a moment, or call our reception desk for immediate help."
)

// pipelineCtxErr reports caller cancellation. A cancelled request must not
// append or archive a turn, so the pipeline checks this at its checkpoints.
func pipelineCtxErr(ctx context.Context) error {
	cerr := ctx.Err()
	if cerr == nil {
		return nil
	}
	if errors.Is(cerr, context.DeadlineExceeded) {
		return chat.ErrPipelineTimeout
	}
	return cerr
}

func (s *chatService) ProcessMessage(ctx context.Context, req chat.ChatRequest, channel string) (chat.ChatResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return chat.ChatResponse{}, chat.ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return chat.ChatResponse{}, chat.ErrMessageTooLong
	}
	if cerr := pipelineCtxErr(ctx); cerr != nil {
		return chat.ChatResponse{}, cerr
	}

	sess, sessionID := s.sessions.GetOrCreate(req.SessionID)

	lang := s.langDetect.Detect(message)
	if err := s.sessions.SetLanguage(sessionID, lang.String()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Debug("Failed to record session language")
	}

	seed := s.utils.SeedFrom(sessionID, message)

	intent := entity.IntentResult{Kind: entity.IntentUnknown}
	pipelineError := ""

	cctx, cancelClassify := context.WithTimeout(ctx, classifyTimeout)
	classified, err := s.classifier.Classify(cctx, message, sess.Turns)
	cancelClassify()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Intent classification failed")
		pipelineError = "classification_failed"
	} else if len(classified) > 0 {
		intent = classified[0]
	}

	var entities []entity.Entity
	if pipelineError == "" {
		ectx, cancelExtract := context.WithTimeout(ctx, extractTimeout)
		entities, err = s.extractor.Extract(ectx, message, intent.Kind)
		cancelExtract()
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Entity extraction failed")
			pipelineError = "extraction_failed"
			entities = nil
		}
	}

	if cerr := pipelineCtxErr(ctx); cerr != nil {
		return chat.ChatResponse{}, cerr
	}

	metadata := map[string]string{"channel": channel}
	var replyText string

	switch {
	case pipelineError != "":
		intent = entity.IntentResult{Kind: entity.IntentUnknown}
		replyText = s.classifier.CannedResponse(entity.IntentUnknown, seed)
		metadata["pipeline_error"] = pipelineError

	case intent.Kind == entity.IntentEmergency || isEmergencyUrgency(entities):
		replyText = s.classifier.CannedResponse(entity.IntentEmergency, seed)
		metadata["escalated"] = "true"
		s.escalate(sessionID, message, entities)

	case isCannedIntent(intent.Kind):
		replyText = s.classifier.CannedResponse(intent.Kind, seed)

	case intent.Confidence < minConfidence:
		replyText = s.classifier.CannedResponse(entity.IntentUnknown, seed)
		metadata["low_confidence"] = "true"

	default:
		gctx, cancelGenerate := context.WithTimeout(ctx, generateTimeout)
		replyText, err = s.generateAnswer(gctx, message, intent.Kind, sess.Turns)
		cancelGenerate()
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Answer generation failed")

			replyText = s.classifier.CannedResponse(intent.Kind, seed)
			if replyText == "" {
				replyText = apologeticAnswer
			}
			metadata["generation_failed"] = "true"
		}
	}

	enhanced := empathy.Enhance(replyText, message, intent.Kind, entities, seed)
	reply := s.formatter.Format(enhanced, intent.Kind, entities, seed)
	for k, v := range reply.Metadata {
		metadata[k] = v
	}

	if cerr := pipelineCtxErr(ctx); cerr != nil {
		return chat.ChatResponse{}, cerr
	}

	turn := entity.Turn{
		UserMessage: message,
		BotResponse: reply.Text,
		Intent:      intent.Kind,
		Confidence:  intent.Confidence,
		Entities:    entities,
		Metadata:    metadata,
		Timestamp:   time.Now(),
	}

	if err := s.sessions.AppendTurn(sessionID, turn); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Session was evicted between lookup and append; recreate once.
			_, sessionID = s.sessions.GetOrCreate(sessionID)
			err = s.sessions.AppendTurn(sessionID, turn)
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Failed to append turn to session")
		}
	}

	s.archiveTurn(sessionID, channel, turn)

	resp := chat.ChatResponse{
		Response:     reply.Text,
		SessionID:    sessionID,
		Intent:       intent.Kind.String(),
		Confidence:   intent.Confidence,
		NextQuestion: reply.NextQuestion,
	}
	for _, sg := range reply.Suggestions {
		resp.Suggestions = append(resp.Suggestions, chat.SuggestionResponse{
			Label:  sg.Label,
			Action: sg.Action,
		})
	}

	return resp, nil
}

func (s *chatService) History(ctx context.Context, sessionID string, lastN int) (chat.HistoryResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	turns, err := s.sessions.History(sessionID, lastN)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Evicted sessions may still be readable from the archive.
			return s.archivedHistory(ctx, sessionID, lastN)
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to read session history")
		return chat.HistoryResponse{}, err
	}

	return historyResponse(sessionID, turns), nil
}

// archivedHistory serves history for sessions the in-memory store already
// evicted, out of the Postgres turn archive.
func (s *chatService) archivedHistory(ctx context.Context, sessionID string, lastN int) (chat.HistoryResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.chatRepo == nil {
		return chat.HistoryResponse{}, chat.ErrSessionNotFound
	}

	client, err := s.chatRepo.NewClient(false)
	if err != nil {
		return chat.HistoryResponse{}, err
	}

	total, err := client.Turns.CountTurnsBySession(ctx, sessionID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to count archived turns")
		return chat.HistoryResponse{}, err
	}
	if total == 0 {
		return chat.HistoryResponse{}, chat.ErrSessionNotFound
	}

	limit := lastN
	if limit <= 0 || limit > total {
		limit = total
	}

	turns, err := client.Turns.GetTurnsBySession(ctx, sessionID, limit)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to read archived turns")
		return chat.HistoryResponse{}, err
	}

	return historyResponse(sessionID, turns), nil
}

func historyResponse(sessionID string, turns []entity.Turn) chat.HistoryResponse {
	resp := chat.HistoryResponse{
		SessionID: sessionID,
		Turns:     make([]chat.HistoryTurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, chat.HistoryTurnResponse{
			UserMessage: t.UserMessage,
			BotResponse: t.BotResponse,
			Intent:      t.Intent.String(),
			Confidence:  t.Confidence,
			Timestamp:   t.Timestamp,
		})
	}
	return resp
}

// generateAnswer builds a grounded prompt from the knowledge base and the
// recent history, then asks the model. Retrieval failures degrade to an
// ungrounded prompt rather than failing the turn.
func (s *chatService) generateAnswer(ctx context.Context, message string, intent entity.IntentKind, history []entity.Turn) (string, error) {
	var contextParts []string

	results, err := s.knowledge.Query(ctx, message, retrievalTopK, nil)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Knowledge retrieval failed, generating without context")
	} else {
		for _, r := range results {
			contextParts = append(contextParts, r.Content)
		}
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant for Careline Hospitals. ")
	b.WriteString("Answer the patient's question using the hospital information below. ")
	b.WriteString("Never give a diagnosis or prescribe treatment; for medical concerns advise consulting a doctor. ")
	b.WriteString("Keep the answer short and factual.\n\n")

	if len(contextParts) > 0 {
		b.WriteString("Hospital information:\n")
		for _, p := range contextParts {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(history) > 0 {
		start := 0
		if len(history) > historyWindow {
			start = len(history) - historyWindow
		}
		b.WriteString("Recent conversation:\n")
		for _, t := range history[start:] {
			fmt.Fprintf(&b, "Patient: %s\nAssistant: %s\n", t.UserMessage, t.BotResponse)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Detected topic: %s\n", intent.String())
	fmt.Fprintf(&b, "Patient: %s\nAssistant:", message)

	answer, err := s.gemini.GenerateAnswer(ctx, b.String())
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("empty answer from model")
	}

	return answer, nil
}

// escalate notifies the on-call mailbox in the background. Alert delivery
// must never delay or fail the patient-facing reply.
func (s *chatService) escalate(sessionID, message string, entities []entity.Entity) {
	if s.mailer == nil {
		return
	}

	urgency := "emergency"
	if e, ok := entity.FirstEntity(entities, entity.EntityUrgency); ok && e.Normalized != "" {
		urgency = e.Normalized
	}

	go func() {
		if err := s.mailer.SendEscalationAlert(sessionID, message, urgency); err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Failed to send escalation alert")
		}
	}()
}

// archiveTurn persists the turn to the conversation archive without
// blocking the response path.
func (s *chatService) archiveTurn(sessionID, channel string, turn entity.Turn) {
	if s.chatRepo == nil {
		return
	}

	id, err := s.utils.NewULIDFromTimestamp(turn.Timestamp)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to generate turn ID")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		repo, err := s.chatRepo.NewClient(false)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Failed to create repository client for archive")
			return
		}

		if err := repo.Turns.InsertTurn(ctx, id, sessionID, channel, turn); err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Error("Failed to archive turn")
		}
	}()
}

func isCannedIntent(kind entity.IntentKind) bool {
	switch kind {
	case entity.IntentGreeting, entity.IntentThanks, entity.IntentGoodbye:
		return true
	default:
		return false
	}
}

func isEmergencyUrgency(entities []entity.Entity) bool {
	e, ok := entity.FirstEntity(entities, entity.EntityUrgency)
	return ok && e.Normalized == "emergency"
}
