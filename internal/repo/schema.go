package repo

// Схема таблицы tasks для PostgreSQL.
const pgSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    groupid         INT,
    trancheid       INT,
    fileseqno       SERIAL PRIMARY KEY,
    filename        VARCHAR(100),
    status          VARCHAR(50),
    ignoreindicator BOOLEAN,
    filesize        INT,
    lastupdatedtime TIMESTAMP,
    errordesc       VARCHAR(255)
);
CREATE INDEX IF NOT EXISTS tasks_status_idx ON tasks (status, fileseqno);
`

// Схема для SQLite. lastupdatedtime хранится в микросекундах Unix,
// чтобы сравнение "< cutoff" работало на целых числах.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    groupid         INTEGER,
    trancheid       INTEGER,
    fileseqno       INTEGER PRIMARY KEY AUTOINCREMENT,
    filename        TEXT,
    status          TEXT,
    ignoreindicator INTEGER NOT NULL DEFAULT 0,
    filesize        INTEGER,
    lastupdatedtime INTEGER,
    errordesc       TEXT
);
CREATE INDEX IF NOT EXISTS tasks_status_idx ON tasks (status, fileseqno);
`

// Колонки в порядке сканирования.
const taskColumns = `groupid, trancheid, fileseqno, filename, status, ignoreindicator,
		       filesize, lastupdatedtime, errordesc`
