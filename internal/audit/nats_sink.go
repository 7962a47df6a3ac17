package audit

import (
	"context"
	"encoding/json"
	"fmt"

	natspkg "github.com/nats-io/nats.go"
)

// DefaultSubject es el subject por defecto del stream de auditoría.
const DefaultSubject = "mcgate.audit.admission"

// publisher es la parte de *nats.Conn que usa el sink.
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSSink publica una entrada JSON por mensaje.
type NATSSink struct {
	pub     publisher
	subject string
}

// ConnectNATS abre la conexión y devuelve el sink.
func ConnectNATS(url, subject string) (*NATSSink, error) {
	nc, err := natspkg.Connect(url, natspkg.Name("mcgate-audit"))
	if err != nil {
		return nil, fmt.Errorf("audit: nats connect: %w", err)
	}
	return NewNATSSink(nc, subject), nil
}

func NewNATSSink(pub publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

func (s *NATSSink) Write(ctx context.Context, batch []Entry) error {
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("audit: encode: %w", err)
		}
		if err := s.pub.Publish(s.subject, data); err != nil {
			return fmt.Errorf("audit: nats publish: %w", err)
		}
	}
	return s.pub.FlushWithContext(ctx)
}

func (s *NATSSink) Close() error { return s.pub.Drain() }
