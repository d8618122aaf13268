package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

func unitPath(code string, rest ...string) string {
	parts := append([]string{"/org/api/units", url.PathEscape(code)}, rest...)
	return strings.Join(parts, "/")
}

// payload returns the "data" member when the body wraps its result in one.
func payload(body []byte) string {
	if data := gjson.GetBytes(body, "data"); data.Exists() {
		return data.Raw
	}
	return string(body)
}

func (c *Client) ListVersions(ctx context.Context, entityCode string) (*services.VersionHistory, error) {
	resp, err := c.doJSON(ctx, "list_versions", http.MethodGet, unitPath(entityCode, "versions"), nil, nil, "")
	if err != nil {
		return nil, err
	}
	var dtos []versionDTO
	if err := json.Unmarshal([]byte(payload(resp.Body)), &dtos); err != nil {
		return nil, invalidResponse("version history", err)
	}
	versions, err := toVersions(dtos)
	if err != nil {
		return nil, invalidResponse("version history", err)
	}
	return &services.VersionHistory{
		Versions:         versions,
		ConcurrencyToken: resp.Header.Get("ETag"),
	}, nil
}

func (c *Client) GetSnapshot(ctx context.Context, entityCode string) (*services.VersionHistory, error) {
	resp, err := c.doJSON(ctx, "get_snapshot", http.MethodGet, unitPath(entityCode), nil, nil, "")
	if err != nil {
		return nil, err
	}
	var dto versionDTO
	if err := json.Unmarshal([]byte(payload(resp.Body)), &dto); err != nil {
		return nil, invalidResponse("entity snapshot", err)
	}
	v, err := toVersion(dto)
	if err != nil {
		return nil, invalidResponse("entity snapshot", err)
	}
	return &services.VersionHistory{
		Versions:         []version.Version{v},
		ConcurrencyToken: resp.Header.Get("ETag"),
	}, nil
}

func (c *Client) ListParentCandidates(ctx context.Context, filter services.CandidateFilter) (*services.CandidatePage, error) {
	q := url.Values{}
	q.Set("asOfDate", version.FormatDate(filter.AsOf))
	if filter.ExcludeCode != "" {
		q.Set("excludeCode", filter.ExcludeCode)
	}
	if filter.ExcludeDescendantsOf != "" {
		q.Set("excludeDescendantsOf", filter.ExcludeDescendantsOf)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}

	resp, err := c.doJSON(ctx, "list_parent_candidates", http.MethodGet, "/org/api/units/parent-candidates", q, nil, "")
	if err != nil {
		return nil, err
	}
	var dto candidatePageDTO
	if err := json.Unmarshal(resp.Body, &dto); err != nil {
		return nil, invalidResponse("candidate page", err)
	}
	page, err := toCandidatePage(dto)
	if err != nil {
		return nil, invalidResponse("candidate page", err)
	}
	return page, nil
}

func (c *Client) CreateEntity(ctx context.Context, req services.CreateEntityRequest) (string, error) {
	resp, err := c.doJSON(ctx, "create_entity", http.MethodPost, "/org/api/units", nil, createEntityDTO{
		Name:            req.Name,
		UnitType:        req.UnitType,
		Description:     req.Description,
		ParentCode:      req.ParentCode,
		EffectiveDate:   version.FormatDate(req.EffectiveDate),
		OperationReason: req.OperationReason,
	}, "")
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(gjson.Get(payload(resp.Body), "code").String())
	if code == "" {
		return "", invalidResponse("create response", nil)
	}
	return code, nil
}

func (c *Client) SubmitEvent(ctx context.Context, entityCode, concurrencyToken string, req services.VersionEventRequest) (*services.EventResponse, error) {
	resp, err := c.doJSON(ctx, "submit_event", http.MethodPost, unitPath(entityCode, "events"), nil, versionEventDTO{
		EventType:     string(req.EventType),
		RecordID:      req.RecordID,
		EffectiveDate: version.FormatDate(req.EffectiveDate),
		ChangeData:    req.ChangeData,
		ChangeReason:  req.ChangeReason,
	}, concurrencyToken)
	if err != nil {
		return nil, err
	}

	// The write has been applied once the status is 2xx. A body that does not
	// decode only loses the echoed timeline; the caller reloads instead.
	out := &services.EventResponse{ConcurrencyToken: resp.Header.Get("ETag")}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return out, nil
	}
	var dto eventResponseDTO
	if err := json.Unmarshal([]byte(payload(resp.Body)), &dto); err != nil {
		c.warn(ctx, "orgapi.submit_event.undecodable_body", logrus.Fields{"entity_code": entityCode, "error": err.Error()})
		return out, nil
	}
	out.Status = dto.Status
	if dto.Timeline != nil {
		versions, err := toVersions(*dto.Timeline)
		if err != nil {
			c.warn(ctx, "orgapi.submit_event.undecodable_timeline", logrus.Fields{"entity_code": entityCode, "error": err.Error()})
			return out, nil
		}
		out.Timeline = versions
	}
	return out, nil
}

func (c *Client) EditRecord(ctx context.Context, entityCode, concurrencyToken string, req services.EditRecordRequest) (string, error) {
	resp, err := c.doJSON(ctx, "edit_record", http.MethodPut, unitPath(entityCode, "history", url.PathEscape(req.RecordID)), nil, editRecordDTO{
		RecordID:        req.RecordID,
		Name:            req.Name,
		UnitType:        req.UnitType,
		LifecycleStatus: string(req.LifecycleStatus),
		Description:     req.Description,
		EffectiveDate:   version.FormatDate(req.EffectiveDate),
		ParentCode:      req.ParentCode,
		ChangeReason:    req.ChangeReason,
		OperationReason: req.OperationReason,
	}, concurrencyToken)
	if err != nil {
		return "", err
	}
	return resp.Header.Get("ETag"), nil
}
