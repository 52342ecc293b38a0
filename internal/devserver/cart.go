package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
)

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !s.mustOwn(w, r, userID) {
		return
	}

	cart, err := s.store.cartForUser(userID)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "no active cart")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

type createCartRequest struct {
	UserID int64 `json:"userId"`
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		respondMessage(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !s.mustOwn(w, r, req.UserID) {
		return
	}

	respondJSON(w, http.StatusCreated, s.store.createCart(req.UserID))
}

type addItemRequest struct {
	CartID    int64 `json:"cartId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := make(map[string][]string)
	if req.CartID <= 0 {
		fields["cartId"] = append(fields["cartId"], "cartId must be positive")
	}
	if req.ProductID <= 0 {
		fields["productId"] = append(fields["productId"], "productId must be positive")
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		fields["quantity"] = append(fields["quantity"], "quantity must be between 1 and 99")
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	item, err := s.store.addItem(req.CartID, req.ProductID, req.Quantity)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "cart or product not found")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondValidation(w, map[string][]string{"quantity": {"quantity must be between 1 and 99"}})
		return
	}

	item, err := s.store.updateItem(itemID, req.Quantity)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "cart item not found")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if errors.Is(s.store.removeItem(itemID), errNotFound) {
		respondMessage(w, http.StatusNotFound, "cart item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !s.mustOwn(w, r, userID) {
		return
	}

	if errors.Is(s.store.clearCart(userID), errNotFound) {
		respondMessage(w, http.StatusNotFound, "no active cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.listProducts())
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productID")
	if !ok {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := s.store.product(productID)
	if errors.Is(err, errNotFound) {
		respondMessage(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, product)
}
