package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zeromq/zmq4"
	json "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"DocDB/internal/domain"
)

const ChangesTopic = "changes"

// ZeroMQChangesPublisher broadcasts the engine's change notifications on a
// PUB socket so other processes can follow the database without polling the
// object store themselves.
type ZeroMQChangesPublisher struct {
	pub         zmq4.Socket
	port        int
	unsubscribe func()
}

func NewZeroMQChangesPublisher(port int) *ZeroMQChangesPublisher {
	reconnectOpt := zmq4.WithAutomaticReconnect(true)
	retryOpt := zmq4.WithDialerRetry(time.Second * 5)
	socket := zmq4.NewPub(context.Background(), reconnectOpt, retryOpt)

	return &ZeroMQChangesPublisher{
		pub:  socket,
		port: port,
	}
}

// Start binds the socket and subscribes to the engine's change feed.
func (z *ZeroMQChangesPublisher) Start(onChange func(domain.ChangeListener) func()) error {
	address := fmt.Sprintf("tcp://*:%d", z.port)
	if err := z.pub.Listen(address); err != nil {
		return fmt.Errorf("changes publisher listen on %s: %w", address, err)
	}
	logrus.WithField("addr", address).Info("changes publisher listening")
	z.unsubscribe = onChange(z.publish)
	return nil
}

func (z *ZeroMQChangesPublisher) publish(changes []domain.DocumentChange) {
	payload, err := json.Marshal(changes)
	if err != nil {
		logrus.WithError(err).Error("encoding change notification")
		return
	}
	err = z.pub.Send(zmq4.NewMsgFrom(
		[][]byte{
			[]byte(ChangesTopic),
			payload,
		}...,
	))
	if err != nil {
		logrus.WithError(err).Error("publishing change notification")
	}
}

func (z *ZeroMQChangesPublisher) Close() error {
	if z.unsubscribe != nil {
		z.unsubscribe()
	}
	return z.pub.Close()
}
