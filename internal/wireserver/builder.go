package wireserver

import (
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// handleBuilderGetResult is the server half of builder error propagation:
// a poisoned builder still gets a result slot allocated (so
// the client's id stays in lockstep), but the driver is never invoked and
// the result is reported invalid. A live builder invokes the driver and
// reports whatever Finish decides.
func (s *Server) handleBuilderGetResult(cmd *wirecmd.CommandEncoderBuilderGetResultCmd) bool {
	builderEntry, ok := s.builders.Get(cmd.SelfID)
	if !ok {
		return false
	}

	encEntry, ok := s.encoders.Allocate(cmd.ResultID, func() *serverEncoder { return &serverEncoder{} })
	if !ok {
		return false
	}

	if !builderEntry.Valid {
		encEntry.Valid = false
		return s.sendBuilderResult(wirecmd.ObjectTypeCommandEncoder, cmd.ResultID, encEntry.Serial, interfaces.BuilderStatusError, "Maybe monad") == nil
	}

	driverEnc, err := s.driver.NewCommandEncoder("")
	if err != nil {
		encEntry.Valid = false
		return s.sendBuilderResult(wirecmd.ObjectTypeCommandEncoder, cmd.ResultID, encEntry.Serial, interfaces.BuilderStatusError, err.Error()) == nil
	}

	ok2, errMsg := driverEnc.Finish()
	encEntry.Object.driver = driverEnc
	encEntry.Valid = ok2

	builderEntry.Object.builtObjectID = cmd.ResultID
	builderEntry.Object.builtObjectSerial = encEntry.Serial

	status := interfaces.BuilderStatusSuccess
	if !ok2 {
		status = interfaces.BuilderStatusError
	}
	return s.sendBuilderResult(wirecmd.ObjectTypeCommandEncoder, cmd.ResultID, encEntry.Serial, status, errMsg) == nil
}
