// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("risk_level", validateRiskLevel)
		_ = v.RegisterValidation("investment_type", validateInvestmentType)
		_ = v.RegisterValidation("room_visibility", validateRoomVisibility)
		_ = v.RegisterValidation("vote_choice", validateVoteChoice)
		_ = v.RegisterValidation("mutation_kind", validateMutationKind)
	}
}

func validateRiskLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "conservative", "moderate", "aggressive":
		return true
	}
	return false
}

func validateInvestmentType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "stocks", "bonds", "crypto", "real_estate", "mixed":
		return true
	}
	return false
}

func validateRoomVisibility(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "public", "private":
		return true
	}
	return false
}

func validateVoteChoice(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "approve", "reject":
		return true
	}
	return false
}

func validateMutationKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "deposit", "withdrawal", "contribution", "return", "refund":
		return true
	}
	return false
}
