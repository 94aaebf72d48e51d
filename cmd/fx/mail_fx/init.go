package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"salon/internal/config"
	"salon/internal/services"
)

var Module = fx.Provide(
	provideNotifier, provideNotificationFanout)

func provideNotificationFanout(notifier services.Notifier, cfg *config.Config, log *zap.Logger) *services.NotificationFanout {
	return services.NewNotificationFanout(notifier, log, cfg.NotifyTimeout)
}

func provideNotifier(cfg *config.Config, log *zap.Logger) services.Notifier {
	if cfg.SMTP.Host == "" || cfg.SMTP.From == "" {
		log.Warn("SMTP not configured, gift card emails are disabled")
		return services.NewNoopNotifier()
	}

	mailService, err := services.NewSMTPMailService(services.SMTPConfig{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		FromName:   cfg.SMTP.FromName,
		UseSSL:     cfg.SMTP.UseSSL,
		RequireTLS: cfg.SMTP.RequireTLS,
		AppName:    cfg.AppName,
		AppBaseURL: cfg.AppBaseURL,
	})
	if err != nil {
		log.Error("failed to initialize SMTP mail service", zap.Error(err))
		return services.NewNoopNotifier()
	}

	return services.NewMailNotifier(mailService, services.NotifierConfig{
		AppBaseURL: cfg.AppBaseURL,
		AdminEmail: cfg.AdminEmail,
	})
}
