package eval

// workerPool runs async function bodies on a fixed set of goroutines.
type workerPool struct {
	tasks chan func()
}

func newWorkerPool(size int) *workerPool {
	pool := &workerPool{tasks: make(chan func(), 64)}
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

func (p *workerPool) worker() {
	for task := range p.tasks {
		task()
	}
}

func (p *workerPool) submit(task func()) {
	p.tasks <- task
}
