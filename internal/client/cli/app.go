package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/shared"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App is the operator console. It reads commands and prompt answers from
// the same reader and writes tables and prompts to out.
type App struct {
	svc    services.SyncService
	online func() bool
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(svc services.SyncService, online func() bool, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, online: online, reader: bufio.NewReader(in), out: out}
}

// Run blocks until the user exits or the input ends.
func (a *App) Run(ctx context.Context) {
	printlnFn("HealthSync console (type 'help' for commands)")
	runREPL(ctx, a, a.statusLine, a.reader)
}

func (a *App) mode() Mode {
	if a.online != nil && a.online() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) statusLine() string {
	s := a.svc.CurrentStatus()
	return fmt.Sprintf("%s %d pending", a.mode(), s.PendingCount)
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func serverID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}

func opt[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func (a *App) Patients(ctx context.Context) error {
	recs, err := a.svc.ListPatients(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No patients yet")
		return nil
	}

	tw := a.table()
	fmt.Fprintln(tw, "LOCAL ID\tSERVER ID\tNAME\tAGE\tGENDER\tVILLAGE")
	for _, r := range recs {
		var p models.Patient
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode patient %s: %w", r.LocalID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.LocalID, serverID(r.ServerID), p.FullName, p.Age, p.Gender, p.Village)
	}
	return tw.Flush()
}

func (a *App) AddPatient(ctx context.Context) error {
	var p models.Patient
	var err error

	if p.FullName, err = GetSimpleText(a.reader, "Full name", a.out); err != nil {
		return err
	}
	if p.Age, err = GetInt(a.reader, "Age", a.out); err != nil {
		return err
	}
	gender, err := GetSimpleText(a.reader, "Gender (Male, Female, Other)", a.out)
	if err != nil {
		return err
	}
	p.Gender = shared.Gender(gender)
	if p.Village, err = GetSimpleText(a.reader, "Village", a.out); err != nil {
		return err
	}
	if p.Phone, err = GetOptionalText(a.reader, "Phone", a.out); err != nil {
		return err
	}

	id, err := a.svc.EnqueueParentCreate(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Patient saved locally: %s\n", id)
	return nil
}

func (a *App) Screenings(ctx context.Context, patientID string) error {
	recs, err := a.svc.ListScreenings(ctx, patientID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No screenings for", patientID)
		return nil
	}

	tw := a.table()
	fmt.Fprintln(tw, "LOCAL ID\tSERVER ID\tHEIGHT\tWEIGHT\tBP\tHR\tGLUCOSE\tTAKEN")
	for _, r := range recs {
		var s models.Screening
		if err := json.Unmarshal(r.Payload, &s); err != nil {
			return fmt.Errorf("failed to decode screening %s: %w", r.LocalID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s/%s\t%s\t%s\t%s\n",
			r.LocalID, serverID(r.ServerID),
			opt(s.HeightCm), opt(s.WeightKg),
			opt(s.SystolicBP), opt(s.DiastolicBP), opt(s.HeartRate),
			opt(s.GlucoseLevel), r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *App) AddScreening(ctx context.Context, patientID string) error {
	var s models.Screening
	var err error

	floats := []struct {
		prompt string
		dst    **float64
	}{
		{"Height, cm", &s.HeightCm},
		{"Weight, kg", &s.WeightKg},
		{"Glucose level", &s.GlucoseLevel},
		{"Cholesterol level", &s.CholesterolLevel},
	}
	for _, f := range floats {
		if *f.dst, err = GetOptionalFloat(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	ints := []struct {
		prompt string
		dst    **int
	}{
		{"Systolic BP", &s.SystolicBP},
		{"Diastolic BP", &s.DiastolicBP},
		{"Heart rate", &s.HeartRate},
	}
	for _, f := range ints {
		if *f.dst, err = GetOptionalInt(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	smoking, err := GetOptionalText(a.reader, "Smoking status (Never, Former, Current)", a.out)
	if err != nil {
		return err
	}
	if smoking != nil {
		v := shared.SmokingStatus(*smoking)
		s.SmokingStatus = &v
	}
	if s.AlcoholUsage, err = GetOptionalText(a.reader, "Alcohol usage", a.out); err != nil {
		return err
	}
	if s.PhysicalActivity, err = GetOptionalText(a.reader, "Physical activity", a.out); err != nil {
		return err
	}

	id, err := a.svc.EnqueueDependentCreate(ctx, patientID, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Screening saved locally: %s\n", id)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.svc.TriggerSyncNow(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Synced %d, skipped %d, failed %d, still pending %d\n",
		res.Synced, res.Skipped, res.Failures(), res.Pending)
	if res.LastError != "" {
		fmt.Fprintln(a.out, "Last error:", res.LastError)
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s := a.svc.CurrentStatus()

	tw := a.table()
	fmt.Fprintf(tw, "Mode:\t%s\n", a.mode())
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "Pending:\t%d\n", s.PendingCount)
	fmt.Fprintf(tw, "Failed:\t%d\n", s.FailedCount)
	if s.LastSyncAt != nil {
		fmt.Fprintf(tw, "Last sync:\t%s\n", s.LastSyncAt.Local().Format(time.DateTime))
	}
	if s.Err != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", s.Err)
	}
	if s.NeedsAttention {
		fmt.Fprintln(tw, "Some entries need attention, see 'failed'.")
	}
	return tw.Flush()
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.svc.LocalStats(ctx)
	if err != nil {
		return err
	}
	tw := a.table()
	fmt.Fprintf(tw, "Patients:\t%d\n", st.Patients)
	fmt.Fprintf(tw, "Screenings:\t%d\n", st.Screenings)
	fmt.Fprintf(tw, "Pending:\t%d\n", st.Pending)
	fmt.Fprintf(tw, "Failed:\t%d\n", st.Failed)
	return tw.Flush()
}

func (a *App) Failed(ctx context.Context) error {
	entries, err := a.svc.ListFailed(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "Nothing needs attention")
		return nil
	}

	tw := a.table()
	fmt.Fprintln(tw, "ENTRY ID\tTYPE\tACTION\tTARGET\tATTEMPTS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", e.ID, e.EntityType, e.Action, e.TargetLocalID, e.Attempts, opt(e.LastError))
	}
	return tw.Flush()
}

func (a *App) Retry(ctx context.Context, entryID string) error {
	if err := a.svc.RetryFailed(ctx, entryID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Entry %s queued again\n", entryID)
	return nil
}

func (a *App) Ack(ctx context.Context) error {
	a.svc.AcknowledgeFailures()
	fmt.Fprintln(a.out, "Acknowledged")
	return nil
}
