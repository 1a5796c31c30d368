package whatsappService

import (
	chatService "CarelineGolang/internal/api/chat/service"
	"CarelineGolang/internal/api/whatsapp"
	"CarelineGolang/pkg/redis"
	"CarelineGolang/pkg/utils"
	whatsappPkg "CarelineGolang/pkg/whatsapp"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IWebhookService interface {
	HandleInbound(ctx context.Context, req whatsapp.WebhookRequest) (whatsapp.WebhookResponse, error)
}

type webhookService struct {
	log         *logrus.Logger
	chatService chatService.IChatService
	sender      whatsappPkg.IWhatsappSender
	redis       redis.IRedis
	utils       utils.IUtils
}

func NewWebhookService(
	log *logrus.Logger,
	cs chatService.IChatService,
	sender whatsappPkg.IWhatsappSender,
	redisClient redis.IRedis,
	utils utils.IUtils,
) IWebhookService {
	return &webhookService{
		log:         log,
		chatService: cs,
		sender:      sender,
		redis:       redisClient,
		utils:       utils,
	}
}
