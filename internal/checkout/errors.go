package checkout

import (
	"errors"
	"fmt"
)

// Taxonomie d'erreurs du checkout. Les erreurs de validation sont renvoyées
// telles quelles au client ; ErrPersistence est loggée et masquée par un
// message générique côté utilisateur.
var (
	ErrUnauthenticated = errors.New("utilisateur non authentifié")
	ErrEmptyCart       = errors.New("panier vide")
	ErrInvalidQuantity = errors.New("quantité invalide")
	ErrMissingKey      = errors.New("clé d'idempotence manquante")
	ErrPersistence     = errors.New("erreur de persistance")
	// ErrDuplicateRequest : la même clé d'idempotence est tenue par une
	// tentative encore en vol, dont la commande n'existe pas encore.
	// L'appelant réessaie plus tard ; une clé dont la commande existe déjà
	// retourne le résultat d'origine, pas cette erreur.
	ErrDuplicateRequest = errors.New("requête dupliquée")
)

// ProductNotFoundError : une ligne du panier référence un produit inconnu
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("produit introuvable: %s", e.ProductID)
}

// InsufficientStockError : stock insuffisant pour une ligne du panier
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuffisant pour %s (disponible: %d, demandé: %d)",
		e.Name, e.Available, e.Requested)
}

// IsValidationError distingue les erreurs récupérables (renvoyées au client
// avec leur message) des pannes techniques (message générique)
func IsValidationError(err error) bool {
	var notFound *ProductNotFoundError
	var noStock *InsufficientStockError
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.As(err, &notFound) ||
		errors.As(err, &noStock)
}
