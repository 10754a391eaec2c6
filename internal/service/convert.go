package service

import (
	"github.com/mmynk/fundflow/internal/calculator"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/validator"
	"github.com/mmynk/fundflow/pkg/api"
)

func userToAPI(u *models.User) *api.User {
	out := &api.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		CreatedAt:   u.CreatedAt,
	}
	if u.BankAccount != nil {
		b := api.BankAccount(*u.BankAccount)
		out.BankAccount = &b
	}
	return out
}

func fundToAPI(f *models.Fund) *api.Fund {
	return &api.Fund{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Icon:        f.Icon,
		Members:     f.Members,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
	}
}

func splitsToAPI(splits []models.Split) []api.Split {
	out := make([]api.Split, len(splits))
	for i, s := range splits {
		out[i] = api.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}

func splitsFromAPI(splits []api.Split) []models.Split {
	if splits == nil {
		return nil
	}
	out := make([]models.Split, len(splits))
	for i, s := range splits {
		out[i] = models.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return out
}

func transactionToAPI(tx *models.Transaction) *api.Transaction {
	return &api.Transaction{
		ID:          tx.ID,
		FundID:      tx.FundID,
		Description: tx.Description,
		Amount:      tx.Amount,
		PaidBy:      tx.PaidBy,
		Splits:      splitsToAPI(tx.Splits),
		CreatedAt:   tx.CreatedAt,
		Reasoning:   tx.Reasoning,
		AIPrompt:    tx.AIPrompt,
		AIGenerated: tx.AIGenerated,
	}
}

func distributionFromAPI(d *api.Distribution) *calculator.Distribution {
	if d == nil {
		return nil
	}
	strategy := calculator.Strategy(d.Strategy)
	if strategy == "" {
		strategy = calculator.StrategyEven
	}
	return &calculator.Distribution{
		Strategy:          strategy,
		Participants:      d.Participants,
		PayerParticipates: d.PayerParticipates,
		Weights:           d.Weights,
	}
}

func warningsToAPI(warnings []validator.Warning) []*api.Warning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]*api.Warning, len(warnings))
	for i, w := range warnings {
		out[i] = &api.Warning{Kind: string(w.Kind), Message: w.Message}
	}
	return out
}

func proposalToAPI(res *validator.Result, recovered bool) *api.ProposalResponse {
	d := res.Draft
	return &api.ProposalResponse{
		Draft: &api.Draft{
			Description: d.Description,
			Amount:      d.Amount,
			PaidBy:      d.PaidBy,
			Splits:      splitsToAPI(d.Splits),
			Reasoning:   d.Reasoning,
		},
		Warnings:  warningsToAPI(res.Warnings),
		Imbalance: res.Imbalance,
		Recovered: recovered,
	}
}
