package chatRepository

import (
	"context"
	"database/sql"
	"time"

	"CarelineGolang/internal/entity"
	contextPkg "CarelineGolang/pkg/context"

	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type TurnDB struct {
	ID          sql.NullString  `db:"id"`
	SessionID   sql.NullString  `db:"session_id"`
	Channel     sql.NullString  `db:"channel"`
	UserMessage sql.NullString  `db:"user_message"`
	BotResponse sql.NullString  `db:"bot_response"`
	Intent      sql.NullString  `db:"intent"`
	Confidence  sql.NullFloat64 `db:"confidence"`
	Entities    sql.NullString  `db:"entities"`
	Metadata    sql.NullString  `db:"metadata"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r *turnsRepository) InsertTurn(ctx context.Context, id, sessionID, channel string, turn entity.Turn) error {
	requestID := contextPkg.GetRequestID(ctx)

	entitiesJSON, err := json.MarshalToString(turn.Entities)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to marshal turn entities")
		return err
	}

	metadataJSON, err := json.MarshalToString(turn.Metadata)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to marshal turn metadata")
		return err
	}

	argsKV := map[string]interface{}{
		"id":           id,
		"session_id":   sessionID,
		"channel":      channel,
		"user_message": turn.UserMessage,
		"bot_response": turn.BotResponse,
		"intent":       turn.Intent.String(),
		"confidence":   turn.Confidence,
		"entities":     entitiesJSON,
		"metadata":     metadataJSON,
		"created_at":   turn.Timestamp,
	}

	query, args, err := sqlx.Named(queryInsertTurn, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for InsertTurn")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when inserting turn")
		return err
	}

	return nil
}

func (r *turnsRepository) GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]entity.Turn, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []TurnDB

	if limit <= 0 {
		limit = 50
	}

	argsKV := map[string]interface{}{
		"session_id": sessionID,
		"limit":      limit,
	}

	query, args, err := sqlx.Named(queryGetTurnsBySession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetTurnsBySession named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetTurnsBySession execution err")
		return nil, err
	}

	turns := make([]entity.Turn, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		turns = append(turns, r.makeTurn(rows[i]))
	}

	return turns, nil
}

func (r *turnsRepository) CountTurnsBySession(ctx context.Context, sessionID string) (int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var count int

	argsKV := map[string]interface{}{
		"session_id": sessionID,
	}

	query, args, err := sqlx.Named(queryCountTurnsBySession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountTurnsBySession named query preparation err")
		return 0, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&count); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountTurnsBySession execution err")
		return 0, err
	}

	return count, nil
}

func (r *turnsRepository) makeTurn(row TurnDB) entity.Turn {
	turn := entity.Turn{
		UserMessage: row.UserMessage.String,
		BotResponse: row.BotResponse.String,
		Intent:      entity.ParseIntentKind(row.Intent.String),
		Confidence:  row.Confidence.Float64,
		Timestamp:   row.CreatedAt,
	}

	if row.Entities.Valid && row.Entities.String != "" {
		_ = json.UnmarshalFromString(row.Entities.String, &turn.Entities)
	}
	if row.Metadata.Valid && row.Metadata.String != "" {
		_ = json.UnmarshalFromString(row.Metadata.String, &turn.Metadata)
	}

	return turn
}
