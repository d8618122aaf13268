package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/events"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/pkg/composables"
	"github.com/jacksonlee411/orgtimeline/pkg/constants"
	"github.com/jacksonlee411/orgtimeline/pkg/eventbus"
)

type CreateEntityInput struct {
	Name            string `validate:"required"`
	UnitType        string `validate:"required"`
	Description     string
	ParentCode      string
	EffectiveDate   time.Time
	OperationReason string `validate:"required"`
}

// VersionDraft is the user-editable field set of a version.
type VersionDraft struct {
	Name            string    `json:"name" yaml:"name" validate:"required"`
	UnitType        string    `json:"unitType" yaml:"unitType" validate:"required"`
	ParentCode      string    `json:"parentCode,omitempty" yaml:"parentCode,omitempty"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	EffectiveDate   time.Time `json:"effectiveDate" yaml:"effectiveDate"`
	ChangeReason    string    `json:"changeReason,omitempty" yaml:"changeReason,omitempty" validate:"required"`
	OperationReason string    `json:"operationReason,omitempty" yaml:"operationReason,omitempty"`
}

// DraftFromVersion seeds a draft with every editable field of v.
func DraftFromVersion(v version.Version) VersionDraft {
	return VersionDraft{
		Name:          v.Name,
		UnitType:      v.UnitType,
		ParentCode:    v.ParentCode,
		Description:   v.Description,
		EffectiveDate: v.EffectiveDate,
	}
}

// MutationResult reports a confirmed mutation. Timeline is nil when the
// follow-up reload failed; StaleReason then says why.
type MutationResult struct {
	Operation        events.Operation `json:"operation" yaml:"operation"`
	EntityCode       string           `json:"entityCode" yaml:"entityCode"`
	RecordID         string           `json:"recordId,omitempty" yaml:"recordId,omitempty"`
	Timeline         *Timeline        `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	ConcurrencyToken string           `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	StaleReason      string           `json:"staleReason,omitempty" yaml:"staleReason,omitempty"`
}

type MutationOrchestrator struct {
	repo       TimelineRepository
	loader     *TimelineLoader
	candidates *ParentCandidateCache
	publisher  eventbus.EventBus
	clock      clockwork.Clock
}

func NewMutationOrchestrator(repo TimelineRepository, loader *TimelineLoader, candidates *ParentCandidateCache, publisher eventbus.EventBus, clock clockwork.Clock) *MutationOrchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loader == nil {
		loader = NewTimelineLoader(repo, clock)
	}
	return &MutationOrchestrator{
		repo:       repo,
		loader:     loader,
		candidates: candidates,
		publisher:  publisher,
		clock:      clock,
	}
}

// Create registers a brand-new entity and returns its assigned code.
func (o *MutationOrchestrator) Create(ctx context.Context, in CreateEntityInput) (string, error) {
	const op = events.OperationCreate
	in.Name = strings.TrimSpace(in.Name)
	in.UnitType = strings.TrimSpace(in.UnitType)
	in.ParentCode = strings.TrimSpace(in.ParentCode)
	in.OperationReason = strings.TrimSpace(in.OperationReason)

	if err := validateStruct(in); err != nil {
		return "", o.reject(ctx, op, "", err)
	}
	if in.EffectiveDate.IsZero() {
		return "", o.reject(ctx, op, "", newValidationError(CodeInvalidBody, "effectiveDate is required"))
	}
	in.EffectiveDate = version.NormalizeDate(in.EffectiveDate)
	if err := o.checkParent(ctx, "", in.ParentCode, in.EffectiveDate); err != nil {
		return "", o.reject(ctx, op, "", err)
	}

	code, err := o.repo.CreateEntity(ctx, CreateEntityRequest{
		Name:            in.Name,
		UnitType:        in.UnitType,
		Description:     in.Description,
		ParentCode:      in.ParentCode,
		EffectiveDate:   in.EffectiveDate,
		OperationReason: in.OperationReason,
	})
	if err != nil {
		return "", o.reject(ctx, op, "", normalizeRemoteError(err))
	}
	if strings.TrimSpace(code) == "" {
		return "", o.reject(ctx, op, "", NewRemoteError(0, CodeInvalidResponse, "create response carried no code", nil))
	}

	o.succeed(ctx, &MutationResult{Operation: op, EntityCode: code}, in.EffectiveDate, false)
	return code, nil
}

// InsertVersion adds a new point in time to the entity's timeline. The
// version in effect on the requested date is the anchor the new version
// changes from.
func (o *MutationOrchestrator) InsertVersion(ctx context.Context, entityCode string, current *Timeline, in VersionDraft) (*MutationResult, error) {
	const op = events.OperationInsert
	in = trimDraft(in)
	if err := validateStruct(in); err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}
	if in.EffectiveDate.IsZero() {
		return nil, o.reject(ctx, op, entityCode, newValidationError(CodeInvalidBody, "effectiveDate is required"))
	}
	in.EffectiveDate = version.NormalizeDate(in.EffectiveDate)

	current, err := o.ensureTimeline(ctx, entityCode, current)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}

	anchor, bounds, err := insertionAnchor(current.Versions, in.EffectiveDate)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}
	if hasLiveVersionOn(current.Versions, in.EffectiveDate, "") {
		return nil, o.reject(ctx, op, entityCode, newValidationError(CodeDuplicateEffective,
			fmt.Sprintf("a version already starts on %s", version.FormatDate(in.EffectiveDate))))
	}
	if !bounds.Contains(in.EffectiveDate) {
		return nil, o.reject(ctx, op, entityCode, outOfRange(in.EffectiveDate, bounds))
	}
	if err := o.checkParent(ctx, entityCode, in.ParentCode, in.EffectiveDate); err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}

	changeData, err := BuildChangeData(anchor, in)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, newValidationError(CodeInvalidBody, err.Error()))
	}
	eventType := EventUpdate
	if in.ParentCode != anchor.ParentCode {
		eventType = EventRestructure
	}

	resp, err := o.repo.SubmitEvent(ctx, entityCode, current.ConcurrencyToken, VersionEventRequest{
		EventType:     eventType,
		EffectiveDate: in.EffectiveDate,
		ChangeData:    changeData,
		ChangeReason:  in.ChangeReason,
	})
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, normalizeRemoteError(err))
	}

	res := o.reconcile(ctx, op, entityCode, "", resp)
	if res.Timeline != nil {
		for _, v := range res.Timeline.Versions {
			if !v.Deactivated && v.EffectiveDate.Equal(in.EffectiveDate) {
				res.RecordID = v.RecordID
				break
			}
		}
	}
	o.succeed(ctx, res, in.EffectiveDate, resp == nil || resp.Timeline == nil)
	return res, nil
}

// EditVersion amends recordID in place within its neighbor bounds.
func (o *MutationOrchestrator) EditVersion(ctx context.Context, entityCode string, current *Timeline, recordID string, in VersionDraft) (*MutationResult, error) {
	const op = events.OperationEdit
	in = trimDraft(in)
	if err := validateStruct(in); err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}

	current, err := o.ensureTimeline(ctx, entityCode, current)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}
	target, err := liveVersion(current.Versions, recordID)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}
	if in.EffectiveDate.IsZero() {
		in.EffectiveDate = target.EffectiveDate
	}
	in.EffectiveDate = version.NormalizeDate(in.EffectiveDate)

	bounds := ComputeEditableRange(target, current.Versions)
	if !bounds.Contains(in.EffectiveDate) {
		return nil, o.reject(ctx, op, entityCode, outOfRange(in.EffectiveDate, bounds))
	}
	if err := o.checkParent(ctx, entityCode, in.ParentCode, in.EffectiveDate); err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}

	operationReason := in.OperationReason
	if operationReason == "" {
		operationReason = in.ChangeReason
	}
	token, err := o.repo.EditRecord(ctx, entityCode, current.ConcurrencyToken, EditRecordRequest{
		RecordID:        target.RecordID,
		Name:            in.Name,
		UnitType:        in.UnitType,
		LifecycleStatus: target.LifecycleStatus,
		Description:     in.Description,
		EffectiveDate:   in.EffectiveDate,
		ParentCode:      in.ParentCode,
		ChangeReason:    in.ChangeReason,
		OperationReason: operationReason,
	})
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, normalizeRemoteError(err))
	}

	res := o.reconcile(ctx, op, entityCode, target.RecordID, &EventResponse{ConcurrencyToken: token})
	o.succeed(ctx, res, in.EffectiveDate, true)
	return res, nil
}

// DeactivateVersion soft-deletes recordID. The server's timeline is used
// when the response carries one; otherwise the timeline is reloaded.
func (o *MutationOrchestrator) DeactivateVersion(ctx context.Context, entityCode string, current *Timeline, recordID, reason string) (*MutationResult, error) {
	const op = events.OperationDeactivate
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, o.reject(ctx, op, entityCode, newValidationError(CodeInvalidBody, "changeReason is required"))
	}

	current, err := o.ensureTimeline(ctx, entityCode, current)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}
	target, err := liveVersion(current.Versions, recordID)
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, err)
	}

	resp, err := o.repo.SubmitEvent(ctx, entityCode, current.ConcurrencyToken, VersionEventRequest{
		EventType:     EventDeactivate,
		RecordID:      target.RecordID,
		EffectiveDate: target.EffectiveDate,
		ChangeReason:  reason,
	})
	if err != nil {
		return nil, o.reject(ctx, op, entityCode, normalizeRemoteError(err))
	}

	res := o.reconcile(ctx, op, entityCode, target.RecordID, resp)
	o.succeed(ctx, res, target.EffectiveDate, resp == nil || resp.Timeline == nil)
	return res, nil
}

func (o *MutationOrchestrator) ensureTimeline(ctx context.Context, entityCode string, current *Timeline) (*Timeline, error) {
	if strings.TrimSpace(entityCode) == "" {
		return nil, newValidationError(CodeInvalidBody, "entity code is required")
	}
	if current != nil && current.EntityCode == entityCode {
		return current, nil
	}
	return o.loader.Load(ctx, entityCode)
}

// checkParent runs the cycle walk against the candidates valid on asOf. The
// candidate set is a single page, so a clean walk is best-effort.
func (o *MutationOrchestrator) checkParent(ctx context.Context, self, parent string, asOf time.Time) error {
	if parent == "" {
		return nil
	}
	var candidates map[string]version.Candidate
	if parent != self && o.candidates != nil {
		res := o.candidates.GetCandidates(ctx, asOf, "")
		candidates = res.ByCode()
		if res.Fallback || res.Truncated {
			logWithFields(ctx, logrus.InfoLevel, "orgtimeline.cycle_check.partial", logrus.Fields{
				"entity_code": self,
				"parent_code": parent,
				"as_of_date":  version.FormatDate(asOf),
				"fallback":    res.Fallback,
				"truncated":   res.Truncated,
			})
		}
	}
	if cycle := DetectCycle(self, parent, candidates); cycle.HasCycle {
		return newValidationError(CodeParentCycle,
			fmt.Sprintf("parent %s would create a cycle: %s", parent, cycle.PathString()))
	}
	return nil
}

func (o *MutationOrchestrator) reconcile(ctx context.Context, op events.Operation, entityCode, recordID string, resp *EventResponse) *MutationResult {
	res := &MutationResult{Operation: op, EntityCode: entityCode, RecordID: recordID}
	if resp != nil && resp.Timeline != nil {
		res.Timeline = o.loader.build(entityCode, &VersionHistory{
			Versions:         resp.Timeline,
			ConcurrencyToken: resp.ConcurrencyToken,
		}, "")
		res.ConcurrencyToken = res.Timeline.ConcurrencyToken
		return res
	}

	tl, err := o.loader.Load(ctx, entityCode)
	if err != nil {
		res.StaleReason = UserMessage(err)
		if resp != nil {
			res.ConcurrencyToken = resp.ConcurrencyToken
		}
		logWithFields(ctx, logrus.WarnLevel, "orgtimeline.mutation.reload_failed", errorFields(err, logrus.Fields{
			"operation":   string(op),
			"entity_code": entityCode,
		}))
		return res
	}
	res.Timeline = tl
	res.ConcurrencyToken = tl.ConcurrencyToken
	return res
}

func (o *MutationOrchestrator) reject(ctx context.Context, op events.Operation, entityCode string, err error) error {
	recordMutation(string(op), err)
	logWithFields(ctx, logrus.WarnLevel, "orgtimeline.mutation.rejected", errorFields(err, logrus.Fields{
		"operation":   string(op),
		"entity_code": entityCode,
	}))
	return err
}

func (o *MutationOrchestrator) succeed(ctx context.Context, res *MutationResult, effectiveDate time.Time, reloaded bool) {
	recordMutation(string(res.Operation), nil)
	logWithFields(ctx, logrus.InfoLevel, "orgtimeline.mutation.succeeded", logrus.Fields{
		"operation":      string(res.Operation),
		"entity_code":    res.EntityCode,
		"record_id":      res.RecordID,
		"effective_date": version.FormatDate(effectiveDate),
		"stale":          res.StaleReason != "",
	})
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(events.NewTimelineMutatedV1(
		composables.UseRequestID(ctx),
		res.Operation,
		res.EntityCode,
		res.RecordID,
		effectiveDate,
		res.ConcurrencyToken,
		reloaded,
		o.clock.Now(),
	))
}

func insertionAnchor(versions []version.Version, d time.Time) (version.Version, EditableRange, error) {
	if anchor, ok := effectiveAt(versions, d); ok {
		return anchor, insertionRange(anchor, versions), nil
	}
	var earliest version.Version
	found := false
	for _, v := range versions {
		if v.Deactivated {
			continue
		}
		if !found || v.EffectiveDate.Before(earliest.EffectiveDate) {
			earliest = v
			found = true
		}
	}
	if !found {
		return version.Version{}, EditableRange{}, newValidationError(CodeVersionNotFound,
			"timeline has no live version to insert against; create the entity instead")
	}
	hi := version.DayBefore(earliest.EffectiveDate)
	return earliest, EditableRange{MaxDate: &hi}, nil
}

func liveVersion(versions []version.Version, recordID string) (version.Version, error) {
	target, ok := version.FindByRecordID(versions, strings.TrimSpace(recordID))
	if !ok {
		return version.Version{}, newValidationError(CodeVersionNotFound, fmt.Sprintf("version %q not found", recordID))
	}
	if target.Deactivated {
		return version.Version{}, newValidationError(CodeInvalidBody, fmt.Sprintf("version %q is deactivated", recordID))
	}
	return target, nil
}

func outOfRange(d time.Time, bounds EditableRange) *ServiceError {
	return newValidationError(CodeDateOutOfRange,
		fmt.Sprintf("effectiveDate %s is outside the allowed range %s", version.FormatDate(d), bounds))
}

func trimDraft(in VersionDraft) VersionDraft {
	in.Name = strings.TrimSpace(in.Name)
	in.UnitType = strings.TrimSpace(in.UnitType)
	in.ParentCode = strings.TrimSpace(in.ParentCode)
	in.ChangeReason = strings.TrimSpace(in.ChangeReason)
	in.OperationReason = strings.TrimSpace(in.OperationReason)
	return in
}

func validateStruct(in any) error {
	err := constants.Validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError(CodeInvalidBody, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, lowerFirst(fe.Field()))
	}
	return newValidationError(CodeInvalidBody, fmt.Sprintf("missing required fields: %s", strings.Join(fields, ", ")))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
