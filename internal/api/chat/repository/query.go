package chatRepository

const (
	queryInsertTurn = `
		INSERT INTO conversation_turns (
			id,
			session_id,
			channel,
			user_message,
			bot_response,
			intent,
			confidence,
			entities,
			metadata,
			created_at
		) VALUES (
			:id,
			:session_id,
			:channel,
			:user_message,
			:bot_response,
			:intent,
			:confidence,
			:entities,
			:metadata,
			:created_at
		)
	`

	queryGetTurnsBySession = `
		SELECT
			user_message,
			bot_response,
			intent,
			confidence,
			entities,
			metadata,
			created_at
		FROM conversation_turns
		WHERE session_id = :session_id
		ORDER BY created_at DESC
		LIMIT :limit
	`

	queryCountTurnsBySession = `
		SELECT COUNT(*)
		FROM conversation_turns
		WHERE session_id = :session_id
	`
)
