package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/models"
	"github.com/wfunc/thirteen/services"
)

// Server manages the RPC listener for the admin/stats surface.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// PlayerService exposes player lookups over net/rpc.
type PlayerService struct {
	settlement *services.SettlementService
}

func NewPlayerService(settlement *services.SettlementService) *PlayerService {
	return &PlayerService{settlement: settlement}
}

// Register publishes the service methods on the default RPC server.
func (ps *PlayerService) Register() error {
	return rpc.Register(ps)
}

type GetPlayerArgs struct {
	PlayerID string
}

type GetPlayerReply struct {
	Profile models.PlayerProfile
	Stats   models.PlayerStats
}

func (ps *PlayerService) GetPlayerWithStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	profile, stats, err := ps.settlement.GetPlayerWithStats(args.PlayerID)
	if err != nil {
		return err
	}
	reply.Profile = *profile
	reply.Stats = *stats
	return nil
}
