package handlers

import (
	"fmt"
	"sync"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding tags used by request DTOs to
// gin's validator. Safe to call more than once; later calls return the first
// result.
func RegisterValidators() error {
	registerOnce.Do(func() {
		registerErr = registerValidators(binding.Validator.Engine())
		if registerErr != nil {
			utils.LogError(registerErr, "Failed to register request validators")
		}
	})
	return registerErr
}

func registerValidators(engine any) error {
	v, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", engine)
	}
	if err := v.RegisterValidation("order_status", validOrderStatus); err != nil {
		return fmt.Errorf("registering order_status validator: %w", err)
	}
	return nil
}

func validOrderStatus(fl validator.FieldLevel) bool {
	_, err := models.ParseOrderStatus(fl.Field().String())
	return err == nil
}
