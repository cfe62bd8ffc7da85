package postgres

// schema creates the message table and the indexes the directory queries rely on.
// Every statement is idempotent so Migrate can run on each start.
const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
    seq        BIGSERIAL PRIMARY KEY,
    id         UUID        NOT NULL UNIQUE,
    user_id    TEXT        NOT NULL,
    sender_id  TEXT        NOT NULL,
    content    TEXT        NOT NULL CHECK (content <> ''),
    is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS chat_messages_conversation_idx
    ON chat_messages (user_id, created_at, seq);

CREATE INDEX IF NOT EXISTS chat_messages_unread_idx
    ON chat_messages (user_id)
    WHERE NOT is_read AND sender_id = user_id;
`
