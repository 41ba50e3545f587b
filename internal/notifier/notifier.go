package notifier

import (
	"log/slog"
	"sync"

	"github.com/asquebay/cantine-order-service/internal/model"
)

// state — фаза жизненного цикла точки раздачи событий
type state int

const (
	// stateIdle — ни один подписчик ещё не подключался, канал раздачи не создан
	stateIdle state = iota
	// stateActive — канал раздачи создан первым подписчиком и переиспользуется
	stateActive
	// stateClosed — раздача завершена оператором, новые события не доставляются
	stateClosed
)

// Notifier — единая точка раздачи событий мутаций всем активным подпискам
// канал раздачи материализуется лениво: его создаёт первый вызов Subscribe,
// последующие подписки подключаются к уже существующему
//
// ВАЖНО: Publish до самой первой подписки — осознанный no-op: событие
// безвозвратно отбрасывается. Это документированная семантика, а не баг:
// клиенты сначала открывают живую ленту и только потом создают заказы,
// поэтому при нормальном порядке "subscribe, затем create" потерь нет
type Notifier struct {
	mu     sync.Mutex
	st     state
	nextID uint64
	subs   map[uint64]*Subscription
	log    *slog.Logger
}

// New создаёт Notifier в незапущенном состоянии
// экземпляр один на процесс, им владеет bootstrap приложения
func New(log *slog.Logger) *Notifier {
	return &Notifier{log: log}
}

// Publish доставляет событие каждой активной подписке
// порядок доставки у всех подписчиков совпадает с порядком вызовов Publish:
// единственной точкой сериализации служит мьютекс нотификатора
// вызов безопасен из любого числа конкурентных запросов
func (n *Notifier) Publish(evt model.EntityCrudAction) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.st {
	case stateIdle:
		// канал раздачи ещё не создан — событие отбрасывается (см. комментарий к типу)
		n.log.Debug("no subscriber has ever attached, event dropped",
			slog.String("action", string(evt.Action)),
			slog.String("client_date", evt.Entity.Key()),
		)
		return
	case stateClosed:
		n.log.Debug("notifier is closed, event dropped",
			slog.String("action", string(evt.Action)),
		)
		return
	}

	for _, sub := range n.subs {
		sub.enqueue(evt)
	}
}

// Subscribe возвращает новую подписку на общий поток событий
// подписка видит только события, опубликованные после её регистрации,
// без повтора каких-либо прошлых событий
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &Subscription{
		out:  make(chan model.EntityCrudAction),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	if n.st == stateClosed {
		// после завершения раздачи новая подписка сразу же закрыта
		close(sub.out)
		return sub
	}

	// первый подписчик создаёт канал раздачи, ровно один раз за жизнь процесса
	if n.st == stateIdle {
		n.st = stateActive
		n.subs = make(map[uint64]*Subscription)
		n.log.Info("mutation broadcast channel created")
	}

	n.nextID++
	sub.id = n.nextID
	sub.owner = n
	n.subs[sub.id] = sub
	go sub.pump()

	return sub
}

// Complete завершает раздачу: все активные подписки получают закрытие своих
// каналов, дальнейшие Publish отбрасываются
// вызывается только при остановке процесса
func (n *Notifier) Complete() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.st == stateClosed {
		return
	}
	for _, sub := range n.subs {
		sub.stop()
	}
	n.subs = nil
	n.st = stateClosed
	n.log.Info("mutation broadcast channel completed")
}

// remove отвязывает подписку от раздачи; остальных подписчиков это не касается
func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.st == stateActive {
		delete(n.subs, id)
	}
}

// Subscription — одна подписка на общий поток событий
// внутренняя очередь не ограничена, поэтому медленный потребитель
// не теряет события и не блокирует публикацию для остальных
type Subscription struct {
	id    uint64
	owner *Notifier

	mu    sync.Mutex
	queue []model.EntityCrudAction

	out  chan model.EntityCrudAction
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// Events возвращает канал событий подписки
// канал закрывается при Close этой подписки или при Complete нотификатора
func (s *Subscription) Events() <-chan model.EntityCrudAction {
	return s.out
}

// Close освобождает подписку; общий канал раздачи продолжает жить
func (s *Subscription) Close() {
	if s.owner != nil {
		s.owner.remove(s.id)
	}
	s.stop()
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// enqueue ставит событие в очередь подписки; вызывается под мьютексом нотификатора,
// что и задаёт общий для всех подписчиков порядок доставки
func (s *Subscription) enqueue(evt model.EntityCrudAction) {
	s.mu.Lock()
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump переносит события из внутренней очереди в канал подписчика
// потребитель приостанавливается на чтении out и просыпается сразу после Publish
func (s *Subscription) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			evt := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- evt:
			case <-s.done:
				return
			}
		}
	}
}
