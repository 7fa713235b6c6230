// Package cli реализует инструмент командной строки Tranche.
//
// # Обзор
//
// CLI работает с системой тремя путями:
//   - напрямую с таблицей tasks (schema, seed, tasks, reclaim)
//   - через HTTP API запущенного экземпляра (instance)
//   - через RabbitMQ, наблюдая события tasks (watch)
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент статусного API. Типы ответов дублируются,
// CLI не импортирует internal/api.
//
//	client := cli.NewClient("http://localhost:8080")
//	status, err := client.Status()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: tranche tasks list --json | jq .
//
// ## Commands
//
//   - schema: создать таблицу tasks
//   - seed: вставить синтетические tasks
//   - tasks: list, count, show
//   - reclaim: один проход освобождения зависших tasks
//   - instance: status, stats, health
//   - watch: поток событий из RabbitMQ
//
// Команды создаются фабричными функциями (NewTasksCmd и т.д.),
// принимающими замыкания для ленивого создания хранилища, Client
// и Output после парсинга PersistentFlags.
package cli
