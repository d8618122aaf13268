package api

import (
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

type versionDTO struct {
	RecordID      string  `json:"recordId"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	UnitType      string  `json:"unitType"`
	Status        string  `json:"status"`
	Level         int     `json:"level"`
	Path          string  `json:"path"`
	EffectiveDate string  `json:"effectiveDate"`
	EndDate       *string `json:"endDate"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	ParentCode    *string `json:"parentCode"`
	Description   *string `json:"description"`
	IsCurrent     bool    `json:"isCurrent"`
	IsDeactivated bool    `json:"isDeactivated"`
}

type candidateDTO struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	UnitType      string  `json:"unitType"`
	ParentCode    *string `json:"parentCode"`
	Level         int     `json:"level"`
	EffectiveDate string  `json:"effectiveDate"`
	EndDate       *string `json:"endDate"`
	IsFuture      bool    `json:"isFuture"`
}

type paginationDTO struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type candidatePageDTO struct {
	Data       []candidateDTO `json:"data"`
	Pagination paginationDTO  `json:"pagination"`
}

type createEntityDTO struct {
	Name            string `json:"name"`
	UnitType        string `json:"unitType"`
	Description     string `json:"description,omitempty"`
	ParentCode      string `json:"parentCode,omitempty"`
	EffectiveDate   string `json:"effectiveDate"`
	OperationReason string `json:"operationReason"`
}

type versionEventDTO struct {
	EventType     string         `json:"eventType"`
	RecordID      string         `json:"recordId,omitempty"`
	EffectiveDate string         `json:"effectiveDate"`
	ChangeData    map[string]any `json:"changeData,omitempty"`
	ChangeReason  string         `json:"changeReason"`
}

type editRecordDTO struct {
	RecordID        string `json:"recordId"`
	Name            string `json:"name"`
	UnitType        string `json:"unitType"`
	LifecycleStatus string `json:"lifecycleStatus"`
	Description     string `json:"description,omitempty"`
	EffectiveDate   string `json:"effectiveDate"`
	ParentCode      string `json:"parentCode,omitempty"`
	ChangeReason    string `json:"changeReason"`
	OperationReason string `json:"operationReason"`
}

type eventResponseDTO struct {
	Status   string        `json:"status"`
	Timeline *[]versionDTO `json:"timeline"`
}

func toVersion(dto versionDTO) (version.Version, error) {
	v := version.Version{
		RecordID:    strings.TrimSpace(dto.RecordID),
		Code:        strings.TrimSpace(dto.Code),
		Name:        dto.Name,
		UnitType:    dto.UnitType,
		Level:       dto.Level,
		Path:        dto.Path,
		ParentCode:  strings.TrimSpace(deref(dto.ParentCode)),
		Description: deref(dto.Description),
		IsCurrent:   dto.IsCurrent,
		Deactivated: dto.IsDeactivated,
	}
	if v.RecordID == "" {
		return version.Version{}, errors.New("version: missing recordId")
	}
	if v.Code == "" {
		return version.Version{}, errors.Errorf("version %s: missing code", v.RecordID)
	}

	status := version.StatusActive
	if strings.TrimSpace(dto.Status) != "" {
		parsed, err := version.ParseStatus(dto.Status)
		if err != nil {
			return version.Version{}, errors.Wrapf(err, "version %s", v.RecordID)
		}
		status = parsed
	}
	v.Status = status

	eff, err := version.ParseDate(dto.EffectiveDate)
	if err != nil {
		return version.Version{}, errors.Wrapf(err, "version %s: effectiveDate", v.RecordID)
	}
	v.EffectiveDate = eff

	if v.EndDate, err = optionalDate(dto.EndDate); err != nil {
		return version.Version{}, errors.Wrapf(err, "version %s: endDate", v.RecordID)
	}
	if v.CreatedAt, err = optionalTimestamp(dto.CreatedAt); err != nil {
		return version.Version{}, errors.Wrapf(err, "version %s: createdAt", v.RecordID)
	}
	if v.UpdatedAt, err = optionalTimestamp(dto.UpdatedAt); err != nil {
		return version.Version{}, errors.Wrapf(err, "version %s: updatedAt", v.RecordID)
	}
	return v, nil
}

func toVersions(dtos []versionDTO) ([]version.Version, error) {
	out := make([]version.Version, 0, len(dtos))
	for _, dto := range dtos {
		v, err := toVersion(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toCandidate(dto candidateDTO) (version.Candidate, error) {
	c := version.Candidate{
		Code:       strings.TrimSpace(dto.Code),
		Name:       dto.Name,
		UnitType:   dto.UnitType,
		ParentCode: strings.TrimSpace(deref(dto.ParentCode)),
		Level:      dto.Level,
		IsFuture:   dto.IsFuture,
	}
	if c.Code == "" {
		return version.Candidate{}, errors.New("candidate: missing code")
	}
	if strings.TrimSpace(dto.EffectiveDate) != "" {
		eff, err := version.ParseDate(dto.EffectiveDate)
		if err != nil {
			return version.Candidate{}, errors.Wrapf(err, "candidate %s: effectiveDate", c.Code)
		}
		c.EffectiveDate = eff
	}
	end, err := optionalDate(dto.EndDate)
	if err != nil {
		return version.Candidate{}, errors.Wrapf(err, "candidate %s: endDate", c.Code)
	}
	c.EndDate = end
	return c, nil
}

func toCandidatePage(dto candidatePageDTO) (*services.CandidatePage, error) {
	page := &services.CandidatePage{
		Data: make([]version.Candidate, 0, len(dto.Data)),
		Pagination: services.Pagination{
			Total:    dto.Pagination.Total,
			Page:     dto.Pagination.Page,
			PageSize: dto.Pagination.PageSize,
		},
	}
	for _, c := range dto.Data {
		cand, err := toCandidate(c)
		if err != nil {
			return nil, err
		}
		page.Data = append(page.Data, cand)
	}
	if page.Pagination.Total < len(page.Data) {
		page.Pagination.Total = len(page.Data)
	}
	return page, nil
}

func optionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := version.ParseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
