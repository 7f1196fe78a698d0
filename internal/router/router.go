package router

import (
	"net/http"

	"github.com/senyabanana/procurement-service/internal/handlers"
)

// Handlers - набор обработчиков, которые публикует роутер.
type Handlers struct {
	Requests     *handlers.RequestHandler
	Bids         *handlers.BidHandler
	Negotiations *handlers.NegotiationHandler
	Queries      *handlers.QueryHandler
	Allocations  *handlers.AllocationHandler
}

func InitRoutes(h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)

	mux.HandleFunc("POST /api/requests", h.Requests.CreateServiceRequest)
	mux.HandleFunc("GET /api/requests", h.Requests.ListServiceRequests)
	mux.HandleFunc("GET /api/requests/{id}", h.Requests.GetServiceRequest)
	mux.HandleFunc("PATCH /api/requests/{id}", h.Requests.UpdateServiceRequest)
	mux.HandleFunc("PUT /api/requests/{id}/publish", h.Requests.PublishServiceRequest)
	mux.HandleFunc("PUT /api/requests/{id}/cancel", h.Requests.CancelServiceRequest)
	mux.HandleFunc("PUT /api/requests/{id}/extend", h.Requests.ExtendDeadline)
	mux.HandleFunc("PUT /api/requests/{id}/close", h.Requests.CloseServiceRequest)
	mux.HandleFunc("PUT /api/requests/{id}/work-order", h.Requests.IssueWorkOrder)
	mux.HandleFunc("PUT /api/requests/{id}/start", h.Requests.StartWork)
	mux.HandleFunc("PUT /api/requests/{id}/complete", h.Requests.CompleteServiceRequest)
	mux.HandleFunc("PUT /api/requests/{id}/not-interested", h.Requests.MarkNotInterested)
	mux.HandleFunc("GET /api/opportunities", h.Requests.ListOpportunities)

	mux.HandleFunc("GET /api/requests/{id}/bids", h.Bids.ListBids)
	mux.HandleFunc("POST /api/bids", h.Bids.SubmitBid)
	mux.HandleFunc("GET /api/bids/{id}", h.Bids.GetBid)
	mux.HandleFunc("PUT /api/bids/{id}/submit", h.Bids.SubmitDraftBid)
	mux.HandleFunc("PUT /api/bids/{id}/review", h.Bids.ReviewBid)
	mux.HandleFunc("PUT /api/bids/{id}/accept", h.Bids.AcceptBid)
	mux.HandleFunc("PUT /api/bids/{id}/reject", h.Bids.RejectBid)
	mux.HandleFunc("PUT /api/bids/{id}/withdraw", h.Bids.WithdrawBid)

	mux.HandleFunc("POST /api/bids/{id}/negotiation", h.Negotiations.InitiateNegotiation)
	mux.HandleFunc("GET /api/bids/{id}/negotiation", h.Negotiations.GetNegotiationByBid)
	mux.HandleFunc("GET /api/negotiations/{id}", h.Negotiations.GetNegotiation)
	mux.HandleFunc("POST /api/negotiations/{id}/inputs", h.Negotiations.SubmitNegotiationInput)

	mux.HandleFunc("GET /api/requests/{id}/queries", h.Queries.GetQueries)
	mux.HandleFunc("POST /api/requests/{id}/queries", h.Queries.PostQuery)
	mux.HandleFunc("GET /api/bids/{id}/queries", h.Queries.GetBidQueries)
	mux.HandleFunc("POST /api/queries/{id}/replies", h.Queries.PostReply)

	mux.HandleFunc("PUT /api/requests/{id}/allocation", h.Allocations.Allocate)
	mux.HandleFunc("GET /api/requests/{id}/allocations", h.Allocations.AllocationHistory)
	mux.HandleFunc("POST /api/allocations/bulk", h.Allocations.BulkAllocate)

	return mux
}
