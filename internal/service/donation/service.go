package donation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

// nonTerminalStatuses are the states a cancellation may start from.
var nonTerminalStatuses = []model.DonationStatus{
	model.DonationStatusPending,
	model.DonationStatusPendingPickup,
	model.DonationStatusPickedUp,
	model.DonationStatusAwaitingReceipt,
	model.DonationStatusAwaitingDonorConfirm,
}

// Notifier is the slice of the notification dispatcher this service needs.
type Notifier interface {
	NotifyPickupScheduled(ctx context.Context, donation *model.Donation) error
}

// Actor identifies the caller: the user id from the token and, for
// institution accounts, the institution it belongs to.
type Actor struct {
	UserID        uuid.UUID
	InstitutionID *uuid.UUID
}

// mayAccess reports whether the actor is the donor or a member of the
// receiving institution.
func (a Actor) mayAccess(d *model.Donation) bool {
	if a.UserID == d.DonorID {
		return true
	}
	return a.InstitutionID != nil && *a.InstitutionID == d.InstitutionID
}

type Service struct {
	repo        repository.DonationRepository
	projectRepo repository.ProjectRepository
	notifier    Notifier
}

func NewService(repo repository.DonationRepository, projectRepo repository.ProjectRepository, notifier Notifier) *Service {
	return &Service{
		repo:        repo,
		projectRepo: projectRepo,
		notifier:    notifier,
	}
}

// Create registers a new pledge. The initial status depends on who moves the
// goods: drop-off donations wait for the donor to deliver, pickup donations
// wait for the institution to visit.
func (s *Service) Create(ctx context.Context, donorID uuid.UUID, req *model.CreateDonationRequest) (*model.Donation, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("at least one item is required", nil)
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, apperrors.Validation("item quantity must be positive", nil)
		}
	}
	if req.DeliveryType == model.DeliveryTypePickup && req.PickupAddress == nil {
		return nil, apperrors.Validation("pickup address is required for coleta donations", nil)
	}

	project, err := s.projectRepo.Get(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("project", err)
		}
		return nil, apperrors.RemoteIO(err)
	}
	if !project.Active {
		return nil, apperrors.Validation("project is not accepting donations", nil)
	}
	if project.InstitutionID != req.InstitutionID {
		return nil, apperrors.Validation("project does not belong to the given institution", nil)
	}

	donation := &model.Donation{
		DonorID:       donorID,
		InstitutionID: req.InstitutionID,
		ProjectID:     req.ProjectID,
		ProjectTitle:  req.ProjectTitle,
		DeliveryType:  req.DeliveryType,
		Items:         req.Items,
		Notes:         req.Notes,
		Status:        initialStatus(req.DeliveryType),
	}
	if req.DeliveryType == model.DeliveryTypePickup {
		donation.PickupAddress = req.PickupAddress
	}
	if donation.ProjectTitle == "" {
		donation.ProjectTitle = project.Title
	}

	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, apperrors.RemoteIO(err)
	}

	log.Info().
		Str("donation_id", donation.ID.String()).
		Str("status", string(donation.Status)).
		Str("tipo_entrega", string(donation.DeliveryType)).
		Msg("donation created")

	return donation, nil
}

func initialStatus(t model.DeliveryType) model.DonationStatus {
	if t == model.DeliveryTypePickup {
		return model.DonationStatusPendingPickup
	}
	return model.DonationStatusPending
}

// Get returns a donation the actor is allowed to see. Pickup addresses are
// donor data; strangers get a Forbidden, not the record.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*model.Donation, error) {
	donation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayAccess(donation) {
		return nil, apperrors.Forbidden("donation belongs to another user", nil)
	}
	return donation, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*model.Donation, error) {
	donation, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("donation", err)
		}
		return nil, apperrors.RemoteIO(err)
	}
	return donation, nil
}

func (s *Service) List(ctx context.Context, filters *model.DonationFilters) ([]*model.Donation, error) {
	donations, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	return donations, nil
}

// SchedulePickup tells the donor the institution accepted a coleta donation
// and will visit the pickup address. Informational: no status change.
func (s *Service) SchedulePickup(ctx context.Context, id, institutionID uuid.UUID) error {
	donation, err := s.owned(ctx, id, institutionID)
	if err != nil {
		return err
	}
	if donation.DeliveryType != model.DeliveryTypePickup {
		return apperrors.InvalidState("donation is not a pickup donation", nil)
	}
	if donation.Status != model.DonationStatusPendingPickup {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot schedule pickup for donation in status %s", donation.Status), nil)
	}

	return s.notifier.NotifyPickupScheduled(ctx, donation)
}

// ConfirmPickup records that the institution visited and collected the goods.
// Valid only from pendente_busca; moves to buscado and, in the same
// transaction, creates the donor confirmation notice.
func (s *Service) ConfirmPickup(ctx context.Context, id, institutionID uuid.UUID) error {
	donation, err := s.owned(ctx, id, institutionID)
	if err != nil {
		return err
	}
	if donation.Status != model.DonationStatusPendingPickup {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot confirm pickup for donation in status %s", donation.Status), nil)
	}

	notice := donorConfirmationNotice(donation)
	event, err := notificationEvent(notice)
	if err != nil {
		return apperrors.Internal(err)
	}

	applied, err := s.repo.Transition(ctx, id, &repository.DonationTransition{
		From:   []model.DonationStatus{model.DonationStatusPendingPickup},
		To:     model.DonationStatusPickedUp,
		Notice: notice,
		Event:  event,
	})
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState("donation already left pendente_busca", nil)
	}

	log.Info().
		Str("donation_id", id.String()).
		Str("notification_id", notice.ID.String()).
		Msg("pickup confirmed, donor confirmation requested")

	return nil
}

// ConfirmReceipt closes the donor-delivered path: the institution confirms it
// received the goods. Crediting points happens in the same transaction.
func (s *Service) ConfirmReceipt(ctx context.Context, id, institutionID uuid.UUID) error {
	donation, err := s.owned(ctx, id, institutionID)
	if err != nil {
		return err
	}
	if donation.DeliveryType != model.DeliveryTypeDropOff {
		return apperrors.InvalidState("receipt confirmation applies to entrega donations only", nil)
	}

	from := []model.DonationStatus{
		model.DonationStatusPending,
		model.DonationStatusAwaitingReceipt,
	}
	if err := s.receive(ctx, donation, from, nil); err != nil {
		return err
	}
	return nil
}

// MarkCollected closes the pickup path on the institution's word alone, for
// donors who never answer the confirmation notice. Emits the informational
// pickup-done notice.
func (s *Service) MarkCollected(ctx context.Context, id, institutionID uuid.UUID) error {
	donation, err := s.owned(ctx, id, institutionID)
	if err != nil {
		return err
	}
	if donation.DeliveryType != model.DeliveryTypePickup {
		return apperrors.InvalidState("collection applies to coleta donations only", nil)
	}

	from := []model.DonationStatus{
		model.DonationStatusPendingPickup,
		model.DonationStatusPickedUp,
		model.DonationStatusAwaitingDonorConfirm,
	}
	notice := pickupDoneNotice(donation)
	if err := s.receive(ctx, donation, from, notice); err != nil {
		return err
	}
	return nil
}

// ConfirmByDonor lets the donor confirm the pickup directly from their
// donation list, bypassing the notification response flow.
func (s *Service) ConfirmByDonor(ctx context.Context, id, donorID uuid.UUID) error {
	donation, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if donation.DonorID != donorID {
		return apperrors.Forbidden("donation belongs to another donor", nil)
	}
	if donation.DeliveryType != model.DeliveryTypePickup {
		return apperrors.InvalidState("donor confirmation applies to coleta donations only", nil)
	}

	confirmed := true
	event, err := donationEvent(model.EventTypeDonationReceived, donation)
	if err != nil {
		return apperrors.Internal(err)
	}

	applied, err := s.repo.Transition(ctx, id, &repository.DonationTransition{
		From: []model.DonationStatus{
			model.DonationStatusPickedUp,
			model.DonationStatusAwaitingDonorConfirm,
		},
		To:             model.DonationStatusReceived,
		DonorConfirmed: &confirmed,
		Points:         model.PointsPerReceivedDonation,
		Event:          event,
	})
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot confirm pickup for donation in status %s", donation.Status), nil)
	}
	return nil
}

// MarkDelivered is the donor-side step of the entrega path: the goods were
// handed over and the institution now owes a receipt confirmation.
func (s *Service) MarkDelivered(ctx context.Context, id, donorID uuid.UUID) error {
	donation, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if donation.DonorID != donorID {
		return apperrors.Forbidden("donation belongs to another donor", nil)
	}
	if donation.DeliveryType != model.DeliveryTypeDropOff {
		return apperrors.InvalidState("delivery applies to entrega donations only", nil)
	}

	applied, err := s.repo.Transition(ctx, id, &repository.DonationTransition{
		From: []model.DonationStatus{model.DonationStatusPending},
		To:   model.DonationStatusAwaitingReceipt,
	})
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot mark donation in status %s as delivered", donation.Status), nil)
	}
	return nil
}

// Cancel moves a non-terminal donation to cancelada. Only the donor or the
// receiving institution may cancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) error {
	donation, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !actor.mayAccess(donation) {
		return apperrors.Forbidden("donation belongs to another user", nil)
	}
	if donation.Status.Terminal() {
		return apperrors.InvalidState(
			fmt.Sprintf("donation in status %s cannot be cancelled", donation.Status), nil)
	}

	event, err := donationEvent(model.EventTypeDonationCancelled, donation)
	if err != nil {
		return apperrors.Internal(err)
	}

	cancelReason := reason
	applied, err := s.repo.Transition(ctx, id, &repository.DonationTransition{
		From:         nonTerminalStatuses,
		To:           model.DonationStatusCancelled,
		CancelReason: &cancelReason,
		Event:        event,
	})
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState("donation already reached a terminal state", nil)
	}

	log.Info().
		Str("donation_id", id.String()).
		Str("actor_id", actor.UserID.String()).
		Msg("donation cancelled")

	return nil
}

// receive applies the guarded transition to recebida with the points credit
// and optional notice in one transaction.
func (s *Service) receive(ctx context.Context, donation *model.Donation, from []model.DonationStatus, notice *model.Notification) error {
	event, err := donationEvent(model.EventTypeDonationReceived, donation)
	if err != nil {
		return apperrors.Internal(err)
	}

	applied, err := s.repo.Transition(ctx, donation.ID, &repository.DonationTransition{
		From:   from,
		To:     model.DonationStatusReceived,
		Points: model.PointsPerReceivedDonation,
		Notice: notice,
		Event:  event,
	})
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if !applied {
		return apperrors.InvalidState(
			fmt.Sprintf("cannot receive donation in status %s", donation.Status), nil)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id, institutionID uuid.UUID) (*model.Donation, error) {
	donation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if donation.InstitutionID != institutionID {
		return nil, apperrors.Forbidden("donation belongs to another institution", nil)
	}
	return donation, nil
}

func donorConfirmationNotice(d *model.Donation) *model.Notification {
	return &model.Notification{
		ID:            uuid.New(),
		UserID:        d.DonorID,
		InstitutionID: d.InstitutionID,
		DonationID:    d.ID,
		Type:          model.NotificationTypeDonorConfirmation,
		Title:         "Confirme a coleta da sua doação",
		Description:   fmt.Sprintf("A instituição informou que buscou os itens da doação para o projeto %q. Confirme se a coleta aconteceu.", d.ProjectTitle),
	}
}

func pickupDoneNotice(d *model.Donation) *model.Notification {
	return &model.Notification{
		ID:            uuid.New(),
		UserID:        d.DonorID,
		InstitutionID: d.InstitutionID,
		DonationID:    d.ID,
		Type:          model.NotificationTypePickupDone,
		Title:         "Doação coletada",
		Description:   fmt.Sprintf("A instituição registrou a coleta dos itens da doação para o projeto %q.", d.ProjectTitle),
	}
}

func notificationEvent(n *model.Notification) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return &model.OutboxEvent{
		EventType: model.EventTypeNotificationCreated,
		Payload:   payload,
	}, nil
}

func donationEvent(eventType string, d *model.Donation) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"doacao_id":      d.ID,
		"doador_id":      d.DonorID,
		"instituicao_id": d.InstitutionID,
		"projeto_id":     d.ProjectID,
		"occurred_at":    time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal donation payload: %w", err)
	}
	return &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}, nil
}
