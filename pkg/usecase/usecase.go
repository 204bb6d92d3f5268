package usecase

import (
	"github.com/secmon-lab/musubi/pkg/domain/interfaces"
)

type UseCases struct {
	repo         interfaces.Repository
	provider     interfaces.InsightsProvider
	notifier     interfaces.Notifier
	messages     NoticeMessages
	insightsOpts []InsightsCacheOption

	Insights   *InsightsCache
	Invitation *InvitationUseCase
}

type Option func(*UseCases)

// WithInsightsProvider enables the insights cache
func WithInsightsProvider(provider interfaces.InsightsProvider) Option {
	return func(uc *UseCases) {
		uc.provider = provider
	}
}

// WithNotifier sets the notifier shared by every use case
func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithNoticeMessages overrides the notice texts
func WithNoticeMessages(messages NoticeMessages) Option {
	return func(uc *UseCases) {
		uc.messages = messages
	}
}

// WithInsightsCacheOptions passes extra options to the insights cache
func WithInsightsCacheOptions(opts ...InsightsCacheOption) Option {
	return func(uc *UseCases) {
		uc.insightsOpts = append(uc.insightsOpts, opts...)
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		messages: DefaultNoticeMessages(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.provider != nil {
		cacheOpts := []InsightsCacheOption{
			WithInsightsNotifier(uc.notifier),
			WithInsightsMessages(uc.messages),
		}
		uc.Insights = NewInsightsCache(uc.provider, append(cacheOpts, uc.insightsOpts...)...)
	}
	uc.Invitation = NewInvitationUseCase(repo, uc.notifier, uc.messages)

	return uc
}
