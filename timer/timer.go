package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task is one scheduled callback. A positive Interval reschedules the task
// after each fire.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Scheduler runs timed callbacks from a single goroutine draining a heap.
// Callbacks fire on their own goroutines; anything touching shared state
// must re-check its own validity, cancellation alone is not a guarantee
// against an already-fired task.
type Scheduler struct {
	queue    taskQueue
	mutex    sync.Mutex
	nextID   int64
	stopChan chan struct{}
	stopOnce sync.Once
	tick     time.Duration
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		queue:    make(taskQueue, 0),
		nextID:   1,
		stopChan: make(chan struct{}),
		tick:     50 * time.Millisecond,
	}
	heap.Init(&s.queue)
	go s.process()
	return s
}

// Schedule runs fn once after delay and returns the task id.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) int64 {
	return s.add(delay, 0, fn)
}

// ScheduleEvery runs fn after delay and then on every interval.
func (s *Scheduler) ScheduleEvery(delay, interval time.Duration, fn func()) int64 {
	return s.add(delay, interval, fn)
}

func (s *Scheduler) add(delay, interval time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task := &Task{
		ID:       s.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: fn,
	}
	s.nextID++

	heap.Push(&s.queue, task)
	return task.ID
}

// Cancel removes a pending task. Returns false when the task already fired
// or never existed.
func (s *Scheduler) Cancel(taskID int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, task := range s.queue {
		if task.ID == taskID {
			heap.Remove(&s.queue, i)
			return true
		}
	}
	return false
}

// Stop shuts the scheduler down. Pending tasks never fire.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) process() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var due []*Task

			s.mutex.Lock()
			now := time.Now()
			for s.queue.Len() > 0 {
				task := s.queue[0]
				if task.Execute.After(now) {
					break
				}
				heap.Pop(&s.queue)
				due = append(due, task)

				if task.Interval > 0 {
					next := *task
					next.Execute = now.Add(task.Interval)
					heap.Push(&s.queue, &next)
				}
			}
			s.mutex.Unlock()

			for _, task := range due {
				go task.Callback()
			}

		case <-s.stopChan:
			return
		}
	}
}
