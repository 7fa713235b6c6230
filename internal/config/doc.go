// Package config собирает конфигурацию экземпляра из окружения.
//
// Источники (в порядке применения):
//   - значения по умолчанию
//   - YAML файл настройки (TRANCHE_CONFIG), если указан
//   - переменные окружения
//
// Переменные окружения:
//
//	CF_INSTANCE_INDEX  индекс экземпляра (по умолчанию 0)
//	VCAP_SERVICES      JSON документ с credentials БД; если не задан,
//	                   используется FallbackVCAP (localhost:5432, postgres/password)
//	DB_URL             DSN PostgreSQL, перекрывает credentials
//	STORE_DRIVER       postgres (по умолчанию) или sqlite
//	SQLITE_PATH        файл БД для sqlite (по умолчанию data/tasks.db)
//	PORT               порт HTTP (по умолчанию 8080)
//	RABBITMQ_URL       брокер событий; пусто — события отключены
//	SEED_ON_START      true/false, синтетический seed при старте (по умолчанию true)
//	SEED_COUNT         количество синтетических tasks (по умолчанию 15)
//
// Битый VCAP_SERVICES или некорректный индекс — ErrConfigurationInvalid:
// экземпляр не должен запускать цикл обработки.
package config
