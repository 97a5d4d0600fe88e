// Package queue provides a repository-agnostic task queue whose tasks carry
// their tenant with them.
//
// The Enqueuer captures the active tenant binding into the task envelope at
// enqueue time; the Worker restores it through a carrier.Restorer before the
// handler runs and releases it afterwards. Handlers therefore see the same
// tenant scoping as the request that produced the task, and work for a
// tenant that has since been suspended fails instead of executing.
//
// Components interact only through small repository interfaces
// (EnqueuerRepository, WorkerRepository), so any storage engine can back the
// queue; MemoryStorage is the in-process implementation used in tests.
//
// Producing:
//
//	e, _ := queue.NewEnqueuer(repo)
//	// ctx carries the tenant; the task inherits it.
//	_ = e.Enqueue(ctx, SendInvoice{OrderID: 42})
//	// maintenance work with no tenant must say so
//	_ = e.Enqueue(ctx, PruneSessions{}, queue.WithoutTenant())
//
// Consuming:
//
//	w, _ := queue.NewWorker(repo, queue.WithRestorer(restorer))
//	_ = w.RegisterHandler(queue.NewTaskHandler(func(ctx context.Context, p SendInvoice) error {
//		// ctx is bound to the task's tenant here
//		return invoices.Send(ctx, p.OrderID)
//	}))
package queue
