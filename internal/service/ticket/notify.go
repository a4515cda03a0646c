package ticket

import (
	"context"
	"fmt"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/phone"
)

var statusLabels = map[model.Status]string{
	model.StatusNew:        "Yeni",
	model.StatusAssigned:   "Atandı",
	model.StatusInProgress: "İşlemde",
	model.StatusOnHold:     "Beklemede",
	model.StatusResolved:   "Çözüldü",
	model.StatusCancelled:  "İptal edildi",
	model.StatusClosed:     "Kapatıldı",
}

func pushData(t *model.Ticket) map[string]any {
	return map[string]any{"ticket_id": t.ID, "status": string(t.Status)}
}

func (s *ticketService) notifyCreated(ctx context.Context, t *model.Ticket) {
	s.notify.NotifyRole(ctx, model.RoleAdmin, "Yeni talep", t.Title, pushData(t))

	if t.Priority == model.PriorityUrgent {
		loc := t.Location.Project
		if t.Location.Block != "" {
			loc += " / " + t.Location.Block
		}
		if t.Location.Unit != "" {
			loc += " / " + t.Location.Unit
		}
		s.notify.EmailOperators(ctx, email.BuildUrgentTicketEmail(nil, email.UrgentTicketData{
			TicketID:    t.ID,
			Title:       t.Title,
			Description: t.Description,
			Location:    loc,
			Customer:    t.CreatorName,
			Phone:       phone.Display(t.CreatorPhone, s.cfg.PhoneRegion),
		}))
	}

	if t.CreatorPhone != "" {
		s.notify.SMS(ctx, t.CreatorPhone, map[string]string{"title": t.Title, "ticket": shortID(t.ID)})
	}
}

// notifyStatus tells the creator about a status change they did not make.
func (s *ticketService) notifyStatus(ctx context.Context, caller model.Actor, t *model.Ticket) {
	if caller.ID == t.CreatorID {
		return
	}
	body := fmt.Sprintf("%q talebinizin durumu: %s", t.Title, statusLabels[t.Status])
	s.notify.NotifyUser(ctx, t.CreatorID, "Talebiniz güncellendi", body, pushData(t))
}

func (s *ticketService) notifyAssigned(ctx context.Context, t *model.Ticket, members []string) {
	body := fmt.Sprintf("%q talebiniz %s ekibine atandı", t.Title, t.AssignedTeamName)
	s.notify.NotifyUser(ctx, t.CreatorID, "Talebiniz atandı", body, pushData(t))
	for _, uid := range members {
		s.notify.NotifyUser(ctx, uid, "Ekibinize yeni iş", t.Title, pushData(t))
	}
}

// notifyReply tells the other side of the thread.
func (s *ticketService) notifyReply(ctx context.Context, caller model.Actor, t *model.Ticket) {
	title := "Yeni yanıt: " + t.Title
	if caller.ID != t.CreatorID {
		s.notify.NotifyUser(ctx, t.CreatorID, title, caller.Name, pushData(t))
		return
	}
	if t.AssignedTechnicianID != "" {
		s.notify.NotifyUser(ctx, t.AssignedTechnicianID, title, caller.Name, pushData(t))
		return
	}
	s.notify.NotifyRole(ctx, model.RoleAdmin, title, caller.Name, pushData(t))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
