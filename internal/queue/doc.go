// Package queue persists fetch jobs in SQLite and implements the atomic
// claim/complete/fail lifecycle. The jobs table is the single source of
// truth and the only synchronization point between workers: ClaimNext marks
// a row processing in one statement before any external I/O begins, so no
// two workers ever hold the same job.
package queue
