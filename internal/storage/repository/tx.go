package repository

import "database/sql"

// dbtx покрывает *sql.DB и *sql.Tx: репозиторий выполняет одни и те же
// запросы вне и внутри транзакции
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
