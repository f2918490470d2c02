package handler

import (
	"net/http"

	"github.com/BuzzLyutic/mission-control/internal/board"
	"github.com/BuzzLyutic/mission-control/internal/model"
	"github.com/BuzzLyutic/mission-control/pkg/respond"
)

type dragStartRequest struct {
	ID int64 `json:"id"`
}

type dropRequest struct {
	Column model.Status `json:"column"`
}

type dragState struct {
	Dragging bool  `json:"dragging"`
	TaskID   int64 `json:"task_id,omitempty"`
}

type dropResponse struct {
	Result board.DropResult `json:"result"`
}

func (h *TaskHandler) DragState(w http.ResponseWriter, r *http.Request) {
	id, dragging := h.service.Dragging()
	respond.JSON(w, r, http.StatusOK, dragState{Dragging: dragging, TaskID: id})
}

func (h *TaskHandler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := h.service.StartDrag(req.ID); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, dragState{Dragging: true, TaskID: req.ID})
}

func (h *TaskHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	res, err := h.service.Drop(req.Column)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, dropResponse{Result: res})
}

func (h *TaskHandler) DragCancel(w http.ResponseWriter, r *http.Request) {
	h.service.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}
