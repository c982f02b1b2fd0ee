package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
)

// PickupService owns the PickupCredential lifecycle: issuance of signed
// tokens and the exactly-once completion when a credential is presented at
// the counter.
type PickupService struct {
	db     *gorm.DB
	signer *TokenSigner
	orders *OrderService
	window time.Duration
}

func NewPickupService(db *gorm.DB, signer *TokenSigner, orders *OrderService, window time.Duration) *PickupService {
	return &PickupService{
		db:     db,
		signer: signer,
		orders: orders,
		window: window,
	}
}

// Issue creates a fresh credential for the order and returns the encoded
// scannable token. Any previously active credential is revoked first, so an
// order never holds two live credentials.
func (s *PickupService) Issue(orderID uint) (*models.PickupCredential, string, error) {
	var cred models.PickupCredential
	var token string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}
		if order.IsTerminal() {
			return ErrOrderClosed
		}

		err := tx.Model(&models.PickupCredential{}).
			Where("order_id = ? AND completed = ? AND revoked = ?", order.ID, false, false).
			Update("revoked", true).Error
		if err != nil {
			return err
		}

		issuedAt := time.Now()
		cred = models.PickupCredential{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			VerificationCode: s.signer.VerificationCode(order.PublicID, order.OrderNumber, issuedAt),
			IssuedAt:         issuedAt,
			ExpiresAt:        issuedAt.Add(s.window),
		}
		if err := tx.Create(&cred).Error; err != nil {
			return err
		}

		token, err = s.signer.Issue(order.PublicID, order.OrderNumber, issuedAt)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return &cred, token, nil
}

// VerifyScan validates a scanned token and completes the pickup. Exactly one
// of two concurrent calls can succeed; the loser gets ErrAlreadyPickedUp.
func (s *PickupService) VerifyScan(token string, staffID uint, notes string) (*models.Order, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("public_id = ?", claims.OrderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}

		var cred models.PickupCredential
		err := tx.Where("order_id = ? AND verification_code = ?", order.ID, claims.VerificationCode).
			First(&cred).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// Signed token that matches no stored credential.
				return ErrTamperedCredential
			}
			return err
		}
		if cred.Completed {
			return ErrAlreadyPickedUp
		}
		if cred.Revoked {
			// Superseded by a reissued credential.
			return ErrExpiredCredential
		}

		return s.completeTx(tx, &order, &cred, staffID, models.VerificationMethodScan, notes)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyManual completes a pickup from a typed order number. The signature
// check is skipped (the lookup is human-verified) but the single-completion
// invariant and a staleness window on the order still apply.
func (s *PickupService) VerifyManual(orderNumber string, staffID uint, notes string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}

		if time.Since(order.CreatedAt) > s.window {
			return ErrExpiredCredential
		}

		var cred *models.PickupCredential
		var existing models.PickupCredential
		err := tx.Where("order_id = ? AND revoked = ?", order.ID, false).
			Order("id desc").
			First(&existing).Error
		switch err {
		case nil:
			cred = &existing
		case gorm.ErrRecordNotFound:
			// No credential was ever issued; record the completion on a
			// fresh row so the audit fields have a home.
			issuedAt := time.Now()
			cred = &models.PickupCredential{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				VerificationCode: s.signer.VerificationCode(order.PublicID, order.OrderNumber, issuedAt),
				IssuedAt:         issuedAt,
				ExpiresAt:        issuedAt.Add(s.window),
			}
			if err := tx.Create(cred).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if cred.Completed {
			return ErrAlreadyPickedUp
		}

		return s.completeTx(tx, &order, cred, staffID, models.VerificationMethodManual, notes)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// completeTx flips the credential's completion flag exactly once and moves
// the order ready -> completed in the same transaction. The conditional
// update on completed = false is what guarantees a single winner.
func (s *PickupService) completeTx(tx *gorm.DB, order *models.Order, cred *models.PickupCredential, staffID uint, method models.VerificationMethod, notes string) error {
	now := time.Now()
	res := tx.Model(&models.PickupCredential{}).
		Where("id = ? AND completed = ?", cred.ID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": now,
			"completed_by": staffID,
			"method":       method,
			"notes":        notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyPickedUp
	}

	actor := StaffActor(staffID)
	err := s.orders.TransitionTx(tx, order, models.OrderStatusCompleted, actor, nil)
	if err == ErrOrderClosed && order.Status == models.OrderStatusCompleted {
		// Another completion won the order-level race.
		return ErrAlreadyPickedUp
	}
	if err != nil {
		return err
	}

	cred.Completed = true
	cred.CompletedAt = &now
	cred.CompletedBy = &staffID
	cred.Method = &method
	cred.Notes = notes
	return nil
}
