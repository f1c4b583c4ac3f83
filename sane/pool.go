package sane

import "sync"

// workerPool runs batches of tasks on a fixed set of goroutines.
type workerPool struct {
	tasks    chan poolTask
	wg       sync.WaitGroup // running goroutines
	size     int
	stopOnce sync.Once
}

type poolTask struct {
	run  func()
	done *sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	p := &workerPool{
		tasks: make(chan poolTask),
		size:  size,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.loop()
	}
	return p
}

func (p *workerPool) loop() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.run()
		t.done.Done()
	}
}

// invokeAll submits every task and blocks until all of them have returned.
// Tasks must not panic; workers recover on their own.
func (p *workerPool) invokeAll(tasks []func()) {
	var batch sync.WaitGroup
	batch.Add(len(tasks))
	for _, run := range tasks {
		p.tasks <- poolTask{run: run, done: &batch}
	}
	batch.Wait()
}

// shutdown stops accepting work and waits for in-flight tasks. Safe to call
// more than once.
func (p *workerPool) shutdown() {
	p.stopOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
