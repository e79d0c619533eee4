package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create llm, prompt, conversation and interaction",
		SQL: `
			CREATE TABLE llm (
				ID        TEXT PRIMARY KEY,
				name      TEXT NOT NULL,
				endpoint  TEXT NOT NULL DEFAULT '',
				apiKey    TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE prompt (
				ID          TEXT PRIMARY KEY,
				llmID       TEXT NOT NULL,
				version     INTEGER NOT NULL,
				template    TEXT NOT NULL,
				promptType  TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_prompt_identity ON prompt (llmID, promptType, version);

			CREATE TABLE conversation (
				ID             TEXT PRIMARY KEY,
				llmID          TEXT NOT NULL,
				title          TEXT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				created        TEXT NOT NULL,
				modified       TEXT NOT NULL,
				messageCount   INTEGER NOT NULL DEFAULT 0,
				workflowCount  INTEGER NOT NULL DEFAULT 0,
				userID         TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_conversation_modified ON conversation (modified DESC);

			CREATE TABLE interaction (
				ID              TEXT PRIMARY KEY,
				conversationID  TEXT NOT NULL REFERENCES conversation(ID) ON DELETE CASCADE,
				promptID        TEXT NOT NULL DEFAULT '',
				requestText     TEXT NOT NULL,
				contextText     TEXT NOT NULL DEFAULT '',
				requestTime     TEXT NOT NULL,
				typeMessage     TEXT NOT NULL,
				responseText    TEXT NOT NULL DEFAULT '',
				responseTime    TEXT NOT NULL,
				workflow        TEXT NOT NULL DEFAULT 'empty',
				executionLog    TEXT NOT NULL DEFAULT '',
				seq             INTEGER NOT NULL DEFAULT -1
			);

			CREATE INDEX idx_interaction_conversation ON interaction (conversationID);
			CREATE INDEX idx_interaction_latest ON interaction (conversationID, seq DESC);
		`,
	},
}
