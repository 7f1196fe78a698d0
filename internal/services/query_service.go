package services

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"
)

type QueryService struct {
	core
}

// NewQueryService создает новый экземпляр QueryService.
func NewQueryService(deps Dependencies) *QueryService {
	return &QueryService{core: newCore(deps)}
}

// PostQuery задаёт новый вопрос по заявке, при необходимости - по конкретному предложению.
// Закрытый вопрос адресуется явному списку получателей; у открытого получателей нет.
func (s *QueryService) PostQuery(ctx context.Context, p models.Principal, requestID string, req models.QueryRequest) (*models.QueryClarification, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, models.NewValidationError("message is required")
	}

	var recipients []string
	if !req.IsPublic {
		for _, r := range utils.Dedupe(req.Recipients) {
			if r = strings.TrimSpace(r); r != "" && r != p.ID {
				recipients = append(recipients, r)
			}
		}
		if len(recipients) == 0 {
			return nil, models.NewValidationError("private query requires at least one recipient other than the sender")
		}
	}

	sr, err := s.Repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("post query to service request", requestID, err)
	}
	if err := s.authorizeRequest(ctx, sr, p); err != nil {
		return nil, err
	}

	var bid *models.Bid
	if req.BidID != "" {
		bid, err = s.Repo.GetBid(ctx, req.BidID)
		if err != nil {
			return nil, wrap("post query to service request", requestID, err)
		}
		if bid.ServiceRequestID != sr.ID {
			return nil, models.NewValidationError("bid %s does not belong to service request %s", bid.ID, sr.ID)
		}
		if p.IsProvider() && bid.ProviderID != p.ID {
			return nil, models.NewUnauthorizedError("you are not the owner of bid %s", bid.ID)
		}
	}
	if !req.IsPublic {
		bidders, err := s.bidders(ctx, sr.ID)
		if err != nil {
			return nil, wrap("post query to service request", requestID, err)
		}
		if err := checkRecipients(sr, bid, bidders, p, recipients); err != nil {
			return nil, err
		}
	}

	id := s.ids.NewID()
	q := &models.QueryClarification{
		ID:               id,
		ServiceRequestID: sr.ID,
		BidID:            req.BidID,
		RootID:           id,
		SenderID:         p.ID,
		SenderRole:       p.Role,
		Message:          message,
		IsPublic:         req.IsPublic,
		Recipients:       recipients,
		CreatedAt:        s.now(),
	}
	if err := s.Repo.CreateQuery(ctx, q); err != nil {
		return nil, wrap("post query to service request", requestID, err)
	}
	s.publish(ctx, events.New(events.QueryPosted, q.ID, sr.ID, p.ID, "", q.CreatedAt))
	return q, nil
}

// PostReply отвечает на вопрос или ответ. Заявка, предложение, видимость и
// получатели берутся от корневого вопроса и не задаются отвечающим.
func (s *QueryService) PostReply(ctx context.Context, p models.Principal, parentID, message string) (*models.QueryClarification, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("message is required")
	}

	parent, err := s.Repo.GetQuery(ctx, parentID)
	if err != nil {
		return nil, wrap("reply to query", parentID, err)
	}
	root := parent
	if !parent.IsRoot() {
		root, err = s.Repo.GetQuery(ctx, parent.RootID)
		if err != nil {
			return nil, wrap("reply to query", parentID, err)
		}
	}
	sr, err := s.Repo.GetServiceRequest(ctx, root.ServiceRequestID)
	if err != nil {
		return nil, wrap("reply to query", parentID, err)
	}
	bidders, err := s.bidders(ctx, sr.ID)
	if err != nil {
		return nil, wrap("reply to query", parentID, err)
	}
	if !canSeeQuery(root, sr, bidders, p) {
		return nil, models.NewUnauthorizedError("you are not authorized to reply to query %s", parentID)
	}

	reply := &models.QueryClarification{
		ID:               s.ids.NewID(),
		ServiceRequestID: root.ServiceRequestID,
		BidID:            root.BidID,
		ParentID:         parent.ID,
		RootID:           root.ID,
		SenderID:         p.ID,
		SenderRole:       p.Role,
		Message:          message,
		IsPublic:         root.IsPublic,
		Recipients:       slices.Clone(root.Recipients),
		CreatedAt:        laterOf(s.now(), parent.CreatedAt),
	}
	if err := s.Repo.CreateQuery(ctx, reply); err != nil {
		return nil, wrap("reply to query", parentID, err)
	}
	s.publish(ctx, events.New(events.QueryPosted, reply.ID, sr.ID, p.ID, "", reply.CreatedAt))
	return reply, nil
}

// GetQueries возвращает деревья вопросов по заявке, видимые вызывающему.
// Если bidID задан, возвращаются только вопросы по этому предложению.
func (s *QueryService) GetQueries(ctx context.Context, p models.Principal, requestID, bidID string) ([]models.QueryClarification, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("get queries for service request", requestID, err)
	}
	nodes, err := s.Repo.ListQueriesByRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("get queries for service request", requestID, err)
	}
	bidders, err := s.bidders(ctx, requestID)
	if err != nil {
		return nil, wrap("get queries for service request", requestID, err)
	}

	visible := make(map[string]bool)
	for i := range nodes {
		n := &nodes[i]
		if !n.IsRoot() {
			continue
		}
		if bidID != "" && n.BidID != bidID {
			continue
		}
		if canSeeQuery(n, sr, bidders, p) {
			visible[n.ID] = true
		}
	}

	var out []models.QueryClarification
	children := make(map[string][]models.QueryClarification)
	for _, n := range nodes {
		if !visible[n.RootID] {
			continue
		}
		if n.IsRoot() {
			out = append(out, n)
		} else {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}
	for i := range out {
		attachResponses(&out[i], children)
	}
	sortQueries(out)
	return out, nil
}

// GetQueriesForBid возвращает вопросы по конкретному предложению.
func (s *QueryService) GetQueriesForBid(ctx context.Context, p models.Principal, bidID string) ([]models.QueryClarification, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, wrap("get queries for bid", bidID, err)
	}
	return s.GetQueries(ctx, p, bid.ServiceRequestID, bid.ID)
}

func (s *QueryService) authorizeRequest(ctx context.Context, sr *models.ServiceRequest, p models.Principal) error {
	if p.IsSeeker() {
		if sr.OwnedBy(p) {
			return nil
		}
		return models.NewUnauthorizedError("you are not authorized to post queries on service request %s", sr.ID)
	}
	ok, err := providerCanSee(ctx, s.Repo, sr, p.ID)
	if err != nil {
		return wrap("post query to service request", sr.ID, err)
	}
	if !ok {
		return models.NewUnauthorizedError("you are not authorized to post queries on service request %s", sr.ID)
	}
	return nil
}

// checkRecipients проверяет, что закрытый вопрос адресован тем, кто вправе на него
// ответить. Исполнитель пишет только стороне заказчика и обязательно автору заявки.
// Заказчик пишет приглашённым или подавшим предложения исполнителям; вопрос по
// предложению - только его автору.
func checkRecipients(sr *models.ServiceRequest, bid *models.Bid, bidders map[string]bool, p models.Principal, recipients []string) error {
	seekerSide := func(id string) bool {
		return id == sr.CreatorID || (sr.CurrentAssignee != "" && id == sr.CurrentAssignee)
	}

	if p.IsProvider() {
		for _, r := range recipients {
			if !seekerSide(r) {
				return models.NewValidationError("private query from a provider may be addressed to the seeker only, got %s", r)
			}
		}
		if !slices.Contains(recipients, sr.CreatorID) {
			return models.NewValidationError("private query must include the seeker %s", sr.CreatorID)
		}
		return nil
	}

	providers := 0
	for _, r := range recipients {
		switch {
		case seekerSide(r):
			continue
		case bid != nil && r != bid.ProviderID:
			return models.NewValidationError("query about bid %s may be addressed to its provider only, got %s", bid.ID, r)
		case !sr.IsInvited(r) && !bidders[r]:
			return models.NewValidationError("%s is neither invited to nor bidding on service request %s", r, sr.ID)
		}
		providers++
	}
	if bid != nil && !slices.Contains(recipients, bid.ProviderID) {
		return models.NewValidationError("query about bid %s must include its provider %s", bid.ID, bid.ProviderID)
	}
	if providers == 0 {
		return models.NewValidationError("private query requires at least one invited or bidding provider")
	}
	return nil
}

// bidders - исполнители, подавшие предложения по заявке (черновики не считаются).
func (s *QueryService) bidders(ctx context.Context, requestID string) (map[string]bool, error) {
	bids, err := s.Repo.ListBidsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(bids))
	for _, bid := range bids {
		if bid.Status != models.DraftBid {
			out[bid.ProviderID] = true
		}
	}
	return out, nil
}

// canSeeQuery применяет правило видимости к корневому вопросу. Открытый вопрос
// видят заказчик, приглашённые и подавшие предложения исполнители, а также автор.
// Закрытый - только автор и получатели.
func canSeeQuery(root *models.QueryClarification, sr *models.ServiceRequest, bidders map[string]bool, p models.Principal) bool {
	if root.SenderID == p.ID {
		return true
	}
	if !root.IsPublic {
		return slices.Contains(root.Recipients, p.ID)
	}
	if p.IsSeeker() {
		return sr.OwnedBy(p)
	}
	return sr.IsInvited(p.ID) || bidders[p.ID]
}

func attachResponses(node *models.QueryClarification, children map[string][]models.QueryClarification) {
	kids := children[node.ID]
	sortQueries(kids)
	node.Responses = kids
	for i := range node.Responses {
		attachResponses(&node.Responses[i], children)
	}
}

func sortQueries(nodes []models.QueryClarification) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
}
