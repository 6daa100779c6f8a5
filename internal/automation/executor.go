package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// downlink delay between the commands of a multi-command action. The UC300
// drops a second command that arrives while the first is still queued.
const multiCommandDelay = 10 * time.Second

// queueItem is the network-server downlink enqueue payload.
type queueItem struct {
	FPort     int    `json:"fPort"`
	Confirmed bool   `json:"confirmed"`
	Data      string `json:"data"`
	DevEUI    string `json:"devEUI"`
}

type queueRequest struct {
	DeviceQueueItem queueItem `json:"deviceQueueItem"`
}

// Executor queues downlink commands on the LoRaWAN network server.
type Executor struct {
	client *resty.Client
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewExecutor builds an Executor against the network server API.
func NewExecutor(baseURL, apiToken string, timeout time.Duration, logger *zap.Logger) *Executor {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Grpc-Metadata-Authorization", "Bearer "+apiToken)
	return &Executor{client: client, logger: logger, sleep: time.Sleep}
}

// Execute queues the rule's action on the receiver device. Actions with
// multiple semicolon-separated commands are sent in order with a fixed
// delay between them.
func (e *Executor) Execute(ctx context.Context, rule *models.AutomationRule) error {
	port := downlinkPort(rule.ReceiverDeviceType)

	commands := splitCommands(rule.Action)
	for i, cmd := range commands {
		if i > 0 {
			e.sleep(multiCommandDelay)
		}
		if err := e.enqueue(ctx, rule.ReceiverSensor, port, cmd); err != nil {
			return fmt.Errorf("rule %d command %d: %w", rule.ID, i+1, err)
		}
	}

	e.logger.Info("automation action queued",
		zap.Int64("rule_id", rule.ID),
		zap.String("receiver", rule.ReceiverSensor),
		zap.Int("commands", len(commands)))
	return nil
}

func (e *Executor) enqueue(ctx context.Context, devEUI string, port int, data string) error {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(queueRequest{DeviceQueueItem: queueItem{
			FPort:     port,
			Confirmed: true,
			Data:      data,
			DevEUI:    devEUI,
		}}).
		Post(fmt.Sprintf("/api/devices/%s/queue", devEUI))
	if err != nil {
		return fmt.Errorf("queue downlink for %s: %w", devEUI, err)
	}
	if resp.IsError() {
		return fmt.Errorf("queue downlink for %s: status %d: %s", devEUI, resp.StatusCode(), resp.String())
	}
	return nil
}

// downlinkPort returns the application port the receiver listens on.
func downlinkPort(receiverType int) int {
	switch receiverType {
	case models.DeviceTypeWS558, models.DeviceTypeUC300:
		return 85
	default:
		return 8
	}
}

func splitCommands(action string) []string {
	var commands []string
	for _, cmd := range strings.Split(action, ";") {
		cmd = strings.TrimSpace(cmd)
		if cmd != "" {
			commands = append(commands, cmd)
		}
	}
	return commands
}

// cutCommand splits off the first command of a multi-command action.
func cutCommand(action string) (first, rest string, multi bool) {
	first, rest, multi = strings.Cut(action, ";")
	return strings.TrimSpace(first), strings.TrimSpace(rest), multi
}
