package emailsvc

import (
	"sync"

	"github.com/trezcool/tathmini/core"
)

// dummyService records messages instead of sending them; tests use it to
// assert on outgoing mail.
type dummyService struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*dummyService)(nil)

func NewDummyService() *dummyService {
	return &dummyService{sent: make([]core.EmailMessage, 0)}
}

func (svc *dummyService) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, msg := range messages {
		if msg.HasRecipients() && msg.HasContent() {
			svc.sent = append(svc.sent, *msg)
		}
	}
}

func (svc *dummyService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	res := make([]core.EmailMessage, len(svc.sent))
	copy(res, svc.sent)
	return res
}

func (svc *dummyService) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = svc.sent[:0]
}
