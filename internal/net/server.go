package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"sleipnir/internal/common"
	"sleipnir/internal/engine"
	"sleipnir/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Minute
	ownerSweepInterval = time.Minute
)

var ErrImproperConversion = errors.New("improper type conversion")

// TradeSink receives every trade the engine produced, after execution
// reports have gone out to the owning sessions. The journal and the
// market feed plug in here.
type TradeSink interface {
	Consume(trade common.Trade) error
}

// ClientSession is one connected TCP client.
type ClientSession struct {
	id   string
	conn net.Conn
}

// ClientMessage links a parsed message to the session sending it.
type ClientMessage struct {
	sessionID string
	message   Message
}

type Server struct {
	address string
	port    int
	book    *engine.Orderbook

	pool   utils.WorkerPool
	cancel context.CancelFunc

	sessions     map[string]*ClientSession
	sessionsLock sync.Mutex

	// Which session owns which live order, for routing execution
	// reports. Entries are dropped once the order leaves the book.
	owners     map[common.OrderID]string
	ownersLock sync.Mutex

	sinks    []TradeSink
	messages chan ClientMessage
}

func New(address string, port int, book *engine.Orderbook) *Server {
	return &Server{
		address:  address,
		port:     port,
		book:     book,
		pool:     utils.NewWorkerPool(defaultNWorkers),
		sessions: make(map[string]*ClientSession),
		owners:   make(map[common.OrderID]string),
		messages: make(chan ClientMessage, 1),
	}
}

// AddSink registers a trade consumer. Not safe to call once Run has
// started.
func (s *Server) AddSink(sink TradeSink) {
	s.sinks = append(s.sinks, sink)
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	// Start the session handler.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := &ClientSession{
				id:   uuid.New().String(),
				conn: conn,
			}
			log.Info().
				Str("session", session.id).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			// Track the session; we expect to maintain a long TCP
			// connection per client.
			s.addSession(session)

			// Pass over the session to be read from.
			s.pool.AddTask(session)
		}
	}
}

// sessionHandler serializes message handling: it feeds orders into the
// engine, routes reports back to owning sessions, and fans trades out
// to the sinks.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	ticker := time.NewTicker(ownerSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			s.sweepOwners()
		case cm := <-s.messages:
			s.handleMessage(cm.sessionID, cm.message)
		}
	}
}

// sweepOwners drops routing entries for orders that left the book
// outside the serving path. The good-for-day pruner cancels without
// going through a session, so its orders are reaped here.
func (s *Server) sweepOwners() {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	for id := range s.owners {
		if !s.book.Contains(id) {
			delete(s.owners, id)
		}
	}
}

func (s *Server) handleMessage(sessionID string, message Message) {
	switch m := message.(type) {
	case NewOrderMessage:
		s.handleNewOrder(sessionID, m)
	case CancelOrderMessage:
		s.book.Cancel(m.OrderID)
		s.clearOwner(m.OrderID)
	case ModifyOrderMessage:
		s.handleModifyOrder(sessionID, m)
	case BaseMessage:
		if m.TypeOf == LogBook {
			log.Info().
				Int("bid_levels", len(s.book.BidDepth())).
				Int("ask_levels", len(s.book.AskDepth())).
				Int("orders", s.book.OrderCount()).
				Msg("book state")
		}
	default:
		log.Error().Int("type", int(message.GetType())).Msg("unhandled message")
	}
}

func (s *Server) handleNewOrder(sessionID string, m NewOrderMessage) {
	order := m.Order()

	// A resting identity means the engine will ignore this add as a
	// duplicate; report routing for the resting order must not change.
	// Safe against concurrent adds: all message handling is serialized
	// through sessionHandler.
	if s.book.Contains(order.ID) {
		return
	}

	s.setOwner(order.ID, sessionID)

	trades, err := s.book.Add(order)
	if err != nil {
		// Logic fault: bounce it straight back to the caller.
		s.report(sessionID, errorReport(order.ID, err))
	}

	s.dispatchTrades(trades)
	if !s.book.Contains(order.ID) {
		s.clearOwner(order.ID)
	}
}

func (s *Server) handleModifyOrder(sessionID string, m ModifyOrderMessage) {
	trades, err := s.book.Modify(m.OrderID, m.Change())
	if err != nil {
		s.report(sessionID, errorReport(m.OrderID, err))
	}

	s.dispatchTrades(trades)
	if !s.book.Contains(m.OrderID) {
		s.clearOwner(m.OrderID)
	}
}

// dispatchTrades sends one execution report per trade leg to the leg's
// owning session, then hands the trade to every sink.
func (s *Server) dispatchTrades(trades []common.Trade) {
	for _, trade := range trades {
		bidReport, askReport := legReports(trade)
		s.reportToOwner(trade.Bid.OrderID, bidReport)
		s.reportToOwner(trade.Ask.OrderID, askReport)

		if !s.book.Contains(trade.Bid.OrderID) {
			s.clearOwner(trade.Bid.OrderID)
		}
		if !s.book.Contains(trade.Ask.OrderID) {
			s.clearOwner(trade.Ask.OrderID)
		}

		for _, sink := range s.sinks {
			if err := sink.Consume(trade); err != nil {
				log.Error().Err(err).Msg("trade sink failed")
			}
		}
	}
}

func (s *Server) reportToOwner(id common.OrderID, report Report) {
	if owner, ok := s.owner(id); ok {
		s.report(owner, report)
	}
}

// report writes a serialized report to the session. A write failure
// drops the session; the client is presumed gone.
func (s *Server) report(sessionID string, report Report) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("unable to send report")
		delete(s.sessions, sessionID)
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the session's connection, parses it, and passes it on to
// the sessionHandler. A dead connection cleans the session up.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	session, ok := task.(*ClientSession)
	if !ok {
		return ErrImproperConversion
	}

	if err := session.conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("session", session.id).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropSession(session)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := session.conn.Read(buffer)
		if err != nil {
			// A failed read most likely means the client went away.
			log.Info().
				Err(err).
				Str("session", session.id).
				Msg("dropping client connection")
			s.dropSession(session)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("session", session.id).
				Msg("error parsing message")
			s.dropSession(session)
			return nil
		}

		// Pass over to the message handler and exit this worker.
		s.messages <- ClientMessage{
			sessionID: session.id,
			message:   message,
		}

		// Re-queue the session to handle its next message.
		s.pool.AddTask(session)
	}
	return nil
}

// addSession is an atomic map add.
func (s *Server) addSession(session *ClientSession) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[session.id] = session
}

// dropSession closes the connection and forgets the session.
func (s *Server) dropSession(session *ClientSession) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	if err := session.conn.Close(); err != nil {
		log.Error().Err(err).Str("session", session.id).Msg("unable to close connection")
	}
	delete(s.sessions, session.id)
}

func (s *Server) setOwner(id common.OrderID, sessionID string) {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	s.owners[id] = sessionID
}

func (s *Server) owner(id common.OrderID) (string, bool) {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	owner, ok := s.owners[id]
	return owner, ok
}

func (s *Server) clearOwner(id common.OrderID) {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	delete(s.owners, id)
}
