package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

const (
	unreadCacheTTL     = 30 * time.Second
	unreadCacheCleanup = 5 * time.Minute
)

// Service dispatches workflow notifications and feeds donor responses back
// into the donation state machine.
type Service struct {
	repo         repository.NotificationRepository
	donationRepo repository.DonationRepository
	unreadCache  *gocache.Cache
}

func NewService(repo repository.NotificationRepository, donationRepo repository.DonationRepository) *Service {
	return &Service{
		repo:         repo,
		donationRepo: donationRepo,
		unreadCache:  gocache.New(unreadCacheTTL, unreadCacheCleanup),
	}
}

// NotifyPickupScheduled creates the informational ong_busca notice with the
// snapshotted pickup address. No donation status side effect.
func (s *Service) NotifyPickupScheduled(ctx context.Context, donation *model.Donation) error {
	description := fmt.Sprintf("A instituição vai buscar os itens da doação para o projeto %q.", donation.ProjectTitle)
	if donation.PickupAddress != nil {
		description = fmt.Sprintf("%s Endereço: %s, %s - %s, %s/%s, CEP %s.",
			description,
			donation.PickupAddress.Street,
			donation.PickupAddress.Number,
			donation.PickupAddress.Neighborhood,
			donation.PickupAddress.City,
			donation.PickupAddress.State,
			donation.PickupAddress.CEP,
		)
	}

	notice := &model.Notification{
		UserID:        donation.DonorID,
		InstitutionID: donation.InstitutionID,
		DonationID:    donation.ID,
		Type:          model.NotificationTypePickupScheduled,
		Title:         "Coleta agendada",
		Description:   description,
	}

	return s.create(ctx, notice)
}

func (s *Service) create(ctx context.Context, notice *model.Notification) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return apperrors.Internal(err)
	}
	event := &model.OutboxEvent{
		EventType: model.EventTypeNotificationCreated,
		Payload:   payload,
	}

	if err := s.repo.Create(ctx, notice, event); err != nil {
		return apperrors.RemoteIO(err)
	}
	s.unreadCache.Delete(notice.UserID.String())
	return nil
}

// Respond records the donor's answer to a confirmation notice and advances
// the donation accordingly, both in a single store transaction: confirmation
// lands the donation in recebida, denial in coleta_nao_confirmada.
func (s *Service) Respond(ctx context.Context, notificationID, userID uuid.UUID, confirmed bool) error {
	notification, err := s.get(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return apperrors.Forbidden("notification belongs to another user", nil)
	}
	if !notification.Type.Respondable() {
		return apperrors.InvalidState("notification does not accept responses", nil)
	}
	if notification.Responded {
		return apperrors.InvalidState("notification already answered", nil)
	}

	response := model.DonorResponseDenied
	transition := &repository.DonationTransition{
		From: []model.DonationStatus{
			model.DonationStatusPickedUp,
			model.DonationStatusAwaitingDonorConfirm,
		},
		To: model.DonationStatusPickupNotConfirmed,
	}
	donorConfirmed := confirmed
	transition.DonorConfirmed = &donorConfirmed

	if confirmed {
		response = model.DonorResponseConfirmed
		transition.To = model.DonationStatusReceived
		transition.Points = model.PointsPerReceivedDonation
	}

	payload, err := json.Marshal(map[string]interface{}{
		"doacao_id":      notification.DonationID,
		"notificacao_id": notification.ID,
		"resposta":       response,
		"occurred_at":    time.Now(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	eventType := model.EventTypeDonationReceived
	if !confirmed {
		eventType = model.EventTypeDonationDisputed
	}
	transition.Event = &model.OutboxEvent{EventType: eventType, Payload: payload}

	applied, err := s.repo.Respond(ctx, notificationID, response, notification.DonationID, transition)
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState("donation is not awaiting donor confirmation", nil)
	}

	s.unreadCache.Delete(userID.String())

	log.Info().
		Str("notification_id", notificationID.String()).
		Str("donation_id", notification.DonationID.String()).
		Str("resposta", string(response)).
		Msg("donor responded to confirmation notice")

	return nil
}

// MarkRead flags the notification as read. Reading a confirmation notice
// also advances the donation from buscado to aguardando_confirmacao_usuario:
// the donor has now seen the request.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	notification, err := s.get(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return apperrors.Forbidden("notification belongs to another user", nil)
	}

	changed, err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !changed {
		return nil
	}
	s.unreadCache.Delete(userID.String())

	if notification.Type != model.NotificationTypeDonorConfirmation {
		return nil
	}

	_, err = s.donationRepo.Transition(ctx, notification.DonationID, &repository.DonationTransition{
		From: []model.DonationStatus{model.DonationStatusPickedUp},
		To:   model.DonationStatusAwaitingDonorConfirm,
	})
	if err != nil {
		// The read mark already landed; log and surface nothing.
		log.Error().Err(err).
			Str("donation_id", notification.DonationID.String()).
			Msg("failed to advance donation after confirmation notice read")
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, notificationID, userID uuid.UUID) error {
	err := s.repo.Delete(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.RemoteIO(err)
	}
	s.unreadCache.Delete(userID.String())
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*model.Notification, error) {
	notifications, err := s.repo.ListForUser(ctx, userID, onlyUnread)
	if err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	return notifications, nil
}

// CountUnread serves the badge counter; cached briefly since every screen
// of the app asks for it.
func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	key := userID.String()
	if cached, ok := s.unreadCache.Get(key); ok {
		return cached.(int), nil
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.RemoteIO(err)
	}
	s.unreadCache.Set(key, count, gocache.DefaultExpiration)
	return count, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, apperrors.RemoteIO(err)
	}
	return notification, nil
}
