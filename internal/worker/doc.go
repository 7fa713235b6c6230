// Package worker реализует цикл обработки tasks одного экземпляра.
//
// # Обзор
//
// Каждый экземпляр сервиса запускает один Worker. Экземпляры не
// общаются между собой: общая только таблица tasks. Worker отвечает за:
//
//   - Освобождение зависших tasks любого экземпляра (Reclaimer)
//   - Выбор NOT_STARTED tasks своего раздела (partition.Filter)
//   - Захват task условной записью NOT_STARTED → IN_PROGRESS
//   - Симуляцию обработки (Simulator) и запись финального статуса
//   - Публикацию событий claimed/completed/reclaimed (опционально)
//
// # Ключевые компоненты
//
// ## Worker
//
// Создаётся через New(cfg Config) и запускается методом Start(ctx)
// или синхронно через Run(ctx).
//
//	w := worker.New(worker.Config{
//	    InstanceIndex: cfg.InstanceIndex,
//	    Store:         store,
//	    Publisher:     publisher,
//	    Logger:        logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// ## Reclaimer
//
// Один проход освобождения: IN_PROGRESS tasks, не обновлявшиеся дольше
// порога (60s), переводятся в FAILED с описанием
// "Instance down or did not process in time".
//
// ## Simulator
//
// Задержка равномерно в [MinDelay, MaxDelay], исход SUCCESS с
// вероятностью SuccessRatio, иначе FAILED "Simulated error.".
// Без Config.Simulator используются 5s, 10s и 0.8.
//
// # Итерация
//
//  1. RECLAIMING — проход Reclaimer; ошибка логируется, итерация продолжается
//  2. SELECTING — выборка NOT_STARTED; ошибка → BACKOFF
//  3. Пустой раздел → SLEEPING_IDLE (10s)
//  4. Для каждого task по возрастанию fileseqno: CLAIMING → PROCESSING → FINALIZING
//  5. BATCH_SLEEP (5s)
//
// Проигранный захват и task, изменённый другим экземпляром во время
// обработки, пропускаются без ошибки. Прочие ошибки хранилища прерывают
// итерацию и переводят цикл в BACKOFF (5s).
package worker
