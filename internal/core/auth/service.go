// internal/core/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/iterator"
)

// ErrCredenciaisInvalidas cobre usuário inexistente e senha errada com a
// mesma mensagem, para não revelar qual dos dois falhou.
var ErrCredenciaisInvalidas = errors.New("usuário ou senha inválidos")

type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type service struct {
	db        *firestore.Client
	jwtSecret []byte
}

func NewService(db *firestore.Client, jwtSecret []byte) Service {
	return &service{db: db, jwtSecret: jwtSecret}
}

// User representa a estrutura de um usuário no Firestore.
type User struct {
	Username     string   `firestore:"username"`
	PasswordHash string   `firestore:"passwordHash"`
	Empresas     []string `firestore:"empresas"` // empresas que o usuário pode acessar
	Roles        []string `firestore:"roles"`
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	query := s.db.Collection("users").Where("username", "==", username).Limit(1).Documents(ctx)
	defer query.Stop()

	doc, err := query.Next()
	if err == iterator.Done {
		return "", ErrCredenciaisInvalidas
	}
	if err != nil {
		return "", fmt.Errorf("%w: consulta de usuário: %v", domain.ErrFalhaColaborador, err)
	}

	var user User
	if err := doc.DataTo(&user); err != nil {
		return "", fmt.Errorf("%w: leitura de usuário: %v", domain.ErrFalhaColaborador, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrCredenciaisInvalidas
	}

	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"empresas": user.Empresas,
		"roles":    user.Roles,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := claims.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.New("erro ao gerar token de acesso")
	}

	return tokenString, nil
}
