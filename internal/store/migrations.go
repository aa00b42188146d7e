package store

const schema = `
CREATE TABLE IF NOT EXISTS goals (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'draft',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id);

CREATE TABLE IF NOT EXISTS actions (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL REFERENCES goals(id),
    sub_goal_id TEXT,
    title TEXT NOT NULL,
    description TEXT,
    type TEXT,
    background TEXT,
    constraints TEXT,
    position INTEGER NOT NULL DEFAULT 0,
    sub_goal_title TEXT,
    sub_goal_description TEXT
);

CREATE INDEX IF NOT EXISTS idx_actions_goal ON actions(goal_id);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    action_id TEXT NOT NULL REFERENCES actions(id),
    title TEXT NOT NULL,
    description TEXT,
    type TEXT,
    estimated_minutes INTEGER DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_action ON tasks(action_id);

CREATE TABLE IF NOT EXISTS runs (
    handle TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL REFERENCES goals(id),
    owner_id TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    stopped_at TIMESTAMP,
    total_items INTEGER NOT NULL DEFAULT 0,
    processed_items INTEGER NOT NULL DEFAULT 0,
    current_batch INTEGER NOT NULL DEFAULT 0,
    total_batches INTEGER NOT NULL DEFAULT 0,
    progress_percentage INTEGER NOT NULL DEFAULT 0,
    eta_seconds INTEGER NOT NULL DEFAULT 0,
    input TEXT,
    output TEXT,
    error_kind TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_goal ON runs(goal_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`
