package repository

// schema is applied on open. Statements are idempotent so reopening an
// existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS rubrics (
    id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS criteria (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rubric_criteria (
    rubric_id   INTEGER NOT NULL REFERENCES rubrics(id),
    criteria_id INTEGER NOT NULL REFERENCES criteria(id),
    weight      REAL,
    PRIMARY KEY (rubric_id, criteria_id)
);

CREATE TABLE IF NOT EXISTS judges (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rubric_judges (
    rubric_id INTEGER NOT NULL REFERENCES rubrics(id),
    judge_id  INTEGER NOT NULL REFERENCES judges(id),
    PRIMARY KEY (rubric_id, judge_id)
);

CREATE TABLE IF NOT EXISTS rubric_judge_criteria (
    rubric_id   INTEGER NOT NULL REFERENCES rubrics(id),
    judge_id    INTEGER NOT NULL REFERENCES judges(id),
    criteria_id INTEGER NOT NULL REFERENCES criteria(id),
    PRIMARY KEY (rubric_id, judge_id, criteria_id)
);

CREATE TABLE IF NOT EXISTS competitions (
    id           INTEGER PRIMARY KEY,
    session_id   INTEGER NOT NULL REFERENCES sessions(id),
    rubric_id    INTEGER NOT NULL REFERENCES rubrics(id),
    name         TEXT NOT NULL,
    order_number INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS competitors (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS competition_competitors (
    competition_id INTEGER NOT NULL REFERENCES competitions(id),
    competitor_id  INTEGER NOT NULL REFERENCES competitors(id),
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    order_number   INTEGER NOT NULL,
    PRIMARY KEY (competition_id, competitor_id)
);

CREATE TABLE IF NOT EXISTS scores (
    competition_id INTEGER NOT NULL,
    competitor_id  INTEGER NOT NULL,
    judge_id       INTEGER NOT NULL,
    criteria_id    INTEGER NOT NULL,
    score          REAL NOT NULL,
    created_at     INTEGER NOT NULL DEFAULT (unixepoch()),
    PRIMARY KEY (competition_id, competitor_id, judge_id, criteria_id)
);
`
