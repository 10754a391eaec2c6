package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/mmynk/fundflow/internal/models"
)

func splitMap(splits []models.Split) map[string]float64 {
	m := make(map[string]float64, len(splits))
	for _, s := range splits {
		m[s.UserID] = s.Amount
	}
	return m
}

func splitSum(splits []models.Split) float64 {
	var sum float64
	for _, s := range splits {
		sum += s.Amount
	}
	return sum
}

func TestDistributeEvenly(t *testing.T) {
	tests := []struct {
		name              string
		amount            float64
		participants      []string
		payer             string
		payerParticipates bool
		want              map[string]float64
	}{
		{
			name:              "payer shares lunch with two others",
			amount:            300,
			participants:      []string{"A", "B", "C"},
			payer:             "A",
			payerParticipates: true,
			want:              map[string]float64{"A": 200, "B": -100, "C": -100},
		},
		{
			name:              "payer reimburses others only",
			amount:            300,
			participants:      []string{"B", "C"},
			payer:             "A",
			payerParticipates: false,
			want:              map[string]float64{"A": 300, "B": -150, "C": -150},
		},
		{
			name:              "remainder absorbed by participating payer",
			amount:            100,
			participants:      []string{"A", "B", "C"},
			payer:             "A",
			payerParticipates: true,
			want:              map[string]float64{"A": 66, "B": -33, "C": -33},
		},
		{
			name:              "remainder owed by first participants of external payer",
			amount:            100,
			participants:      []string{"B", "C", "D"},
			payer:             "A",
			payerParticipates: false,
			want:              map[string]float64{"A": 100, "B": -34, "C": -33, "D": -33},
		},
		{
			name:              "external payer reimbursed uneven amount",
			amount:            301,
			participants:      []string{"B", "C"},
			payer:             "A",
			payerParticipates: false,
			want:              map[string]float64{"A": 301, "B": -151, "C": -150},
		},
		{
			name:              "external payer remainder over several participants",
			amount:            1002,
			participants:      []string{"B", "C", "D", "E"},
			payer:             "A",
			payerParticipates: false,
			want:              map[string]float64{"A": 1002, "B": -251, "C": -251, "D": -250, "E": -250},
		},
		{
			name:              "payer added when missing from participants",
			amount:            90000,
			participants:      []string{"B", "C"},
			payer:             "A",
			payerParticipates: true,
			want:              map[string]float64{"A": 60000, "B": -30000, "C": -30000},
		},
		{
			name:              "payer dropped when not participating",
			amount:            200,
			participants:      []string{"A", "B", "C"},
			payer:             "A",
			payerParticipates: false,
			want:              map[string]float64{"A": 200, "B": -100, "C": -100},
		},
		{
			name:              "duplicates collapsed",
			amount:            200,
			participants:      []string{"A", "B", "B"},
			payer:             "A",
			payerParticipates: true,
			want:              map[string]float64{"A": 100, "B": -100},
		},
		{
			name:              "payer alone",
			amount:            50000,
			participants:      []string{"A"},
			payer:             "A",
			payerParticipates: true,
			want:              map[string]float64{"A": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := DistributeEvenly(tt.amount, tt.participants, tt.payer, tt.payerParticipates)
			if err != nil {
				t.Fatalf("DistributeEvenly() error = %v", err)
			}
			got := splitMap(splits)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d splits, want %d: %v", len(got), len(tt.want), got)
			}
			for id, want := range tt.want {
				if math.Abs(got[id]-want) > 0.001 {
					t.Errorf("split[%s] = %v, want %v", id, got[id], want)
				}
			}
			if splits[0].UserID != tt.payer {
				t.Errorf("first split = %s, want payer %s", splits[0].UserID, tt.payer)
			}
		})
	}
}

func TestDistributeEvenly_ZeroSum(t *testing.T) {
	ids := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, amount := range []float64{1, 7, 100, 301, 99999, 1234567} {
		for n := 1; n <= len(ids); n++ {
			for _, participates := range []bool{true, false} {
				payer := "payer"
				if participates {
					payer = ids[0]
				}
				splits, err := DistributeEvenly(amount, ids[:n], payer, participates)
				if err != nil {
					t.Fatalf("amount=%v n=%d: %v", amount, n, err)
				}
				if sum := splitSum(splits); sum != 0 {
					t.Errorf("amount=%v n=%d participates=%v: sum = %v, want 0", amount, n, participates, sum)
				}
			}
		}
	}
}

func TestDistributeEvenly_ExternalPayerCreditsAmount(t *testing.T) {
	for _, amount := range []float64{120000, 100, 301, 99999, 1234567, 100.5} {
		for n := 1; n <= 7; n++ {
			ids := []string{"B", "C", "D", "E", "F", "G", "H"}[:n]
			splits, err := DistributeEvenly(amount, ids, "A", false)
			if err != nil {
				t.Fatal(err)
			}
			if got := splitMap(splits)["A"]; math.Abs(got-amount) > 1e-9 {
				t.Errorf("amount=%v n=%d: payer credit = %v, want %v", amount, n, got, amount)
			}
			if sum := splitSum(splits); math.Abs(sum) > 1e-9 {
				t.Errorf("amount=%v n=%d: sum = %v, want 0", amount, n, sum)
			}
		}
	}
}

func TestDistributeEvenly_Errors(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		participants []string
		payer        string
		participates bool
		wantErr      error
	}{
		{"zero amount", 0, []string{"A"}, "A", true, ErrInvalidAmount},
		{"negative amount", -5, []string{"A"}, "A", true, ErrInvalidAmount},
		{"missing payer", 100, []string{"A"}, "", true, ErrMissingPayer},
		{"only payer but external", 100, []string{"A"}, "A", false, ErrNoParticipants},
		{"no participants", 100, nil, "A", false, ErrNoParticipants},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DistributeEvenly(tt.amount, tt.participants, tt.payer, tt.participates)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDistributeSelective(t *testing.T) {
	splits, err := DistributeSelective(300, []string{"C"}, "A", true)
	if err != nil {
		t.Fatal(err)
	}
	got := splitMap(splits)
	if got["A"] != 150 || got["C"] != -150 {
		t.Errorf("unexpected splits %v", got)
	}
	if _, ok := got["B"]; ok {
		t.Error("unselected member should not appear")
	}

	if _, err := DistributeSelective(300, nil, "A", false); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("empty selection error = %v, want ErrNoParticipants", err)
	}
}

func TestDistributePercentage(t *testing.T) {
	splits, err := Distribute(Distribution{
		Strategy: StrategyPercentage,
		Amount:   1001,
		PayerID:  "A",
		Weights:  map[string]float64{"A": 50, "B": 30, "C": 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := splitMap(splits)
	// B consumes floor(300.3) = 300, C floor(200.2) = 200; A is owed both.
	want := map[string]float64{"A": 500, "B": -300, "C": -200}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("split[%s] = %v, want %v", id, got[id], w)
		}
	}
	if splitSum(splits) != 0 {
		t.Errorf("sum = %v, want 0", splitSum(splits))
	}

	// The payer has no weight, so they get the full amount back and the
	// leftover unit lands on the first member.
	splits, err = DistributePercentage(1001, map[string]float64{"B": 50, "C": 30, "D": 20}, []string{"B", "C", "D"}, "A")
	if err != nil {
		t.Fatal(err)
	}
	got = splitMap(splits)
	want = map[string]float64{"A": 1001, "B": -501, "C": -300, "D": -200}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("external payer split[%s] = %v, want %v", id, got[id], w)
		}
	}

	_, err = DistributePercentage(100, map[string]float64{"A": 50, "B": 40}, []string{"A", "B"}, "A")
	if !errors.Is(err, ErrPercentTotal) {
		t.Errorf("error = %v, want ErrPercentTotal", err)
	}
}

func TestDistributeCustom(t *testing.T) {
	splits, err := Distribute(Distribution{
		Strategy:     StrategyCustom,
		Amount:       1000,
		PayerID:      "A",
		Participants: []string{"C", "B"},
		Weights:      map[string]float64{"B": 600, "C": 400},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(splits) != 3 {
		t.Fatalf("got %d splits, want 3", len(splits))
	}
	if splits[0].UserID != "A" || splits[0].Amount != 1000 {
		t.Errorf("payer split = %+v, want A +1000", splits[0])
	}
	if splits[1].UserID != "C" || splits[1].Amount != -400 {
		t.Errorf("second split = %+v, want C -400", splits[1])
	}

	_, err = DistributeCustom(1000, map[string]float64{"B": 500, "C": 400}, []string{"B", "C"}, "A")
	if !errors.Is(err, ErrCustomTotal) {
		t.Errorf("error = %v, want ErrCustomTotal", err)
	}
}

func TestDistribute_UnknownStrategy(t *testing.T) {
	_, err := Distribute(Distribution{Strategy: "lottery", Amount: 1, PayerID: "A"})
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("error = %v, want ErrUnknownStrategy", err)
	}
}

func TestApplyOverrideAndRebalance(t *testing.T) {
	splits, err := DistributeEvenly(90000, []string{"A", "B", "C"}, "A", true)
	if err != nil {
		t.Fatal(err)
	}

	splits, err = ApplyOverride(splits, "B", true, "50.000")
	if err != nil {
		t.Fatal(err)
	}
	splits, err = ApplyOverride(splits, "C", false, "10,000đ")
	if err != nil {
		t.Fatal(err)
	}

	got := splitMap(splits)
	if got["B"] != -50000 || got["C"] != 10000 {
		t.Fatalf("overrides not applied: %v", got)
	}
	if got["A"] != 60000 {
		t.Errorf("override touched the payer: %v", got["A"])
	}

	splits = Rebalance(splits, "A")
	got = splitMap(splits)
	if got["A"] != 40000 {
		t.Errorf("payer = %v, want 40000", got["A"])
	}
	if splitSum(splits) != 0 {
		t.Errorf("sum = %v, want 0", splitSum(splits))
	}
}

func TestApplyOverride_AppendsAndRejectsGarbage(t *testing.T) {
	splits := []models.Split{{UserID: "A", Amount: 100}}

	out, err := ApplyOverride(splits, "B", true, "100")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].Amount != -100 {
		t.Errorf("unexpected splits %v", out)
	}
	if len(splits) != 1 {
		t.Error("input slice was modified")
	}

	if _, err := ApplyOverride(splits, "B", false, "lots"); err == nil {
		t.Error("expected error for non-numeric override")
	}
}

func TestRebalance_AddsMissingPayer(t *testing.T) {
	out := Rebalance([]models.Split{{UserID: "B", Amount: -70}, {UserID: "C", Amount: -30}}, "A")
	if out[0].UserID != "A" || out[0].Amount != 100 {
		t.Errorf("payer split = %+v, want A +100", out[0])
	}
}
