// cmd/web/main.go
package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/frmerp/fiscal-engine/internal/api/handlers"
	"github.com/frmerp/fiscal-engine/internal/api/middleware"
	"github.com/frmerp/fiscal-engine/internal/api/responses"
	"github.com/frmerp/fiscal-engine/internal/core/auth"
	"github.com/frmerp/fiscal-engine/internal/core/depreciation"
	"github.com/frmerp/fiscal-engine/internal/core/fiscal"
	"github.com/frmerp/fiscal-engine/internal/core/nfe"
	"github.com/frmerp/fiscal-engine/internal/core/reconciliation"
	"github.com/frmerp/fiscal-engine/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// initFirestoreClient initializes the Firestore client.
func initFirestoreClient(ctx context.Context) *firestore.Client {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("FIRESTORE_DATABASE_ID")
	if projectID == "" {
		log.Fatal("FATAL: Variável de ambiente FIRESTORE_PROJECT_ID não está configurada.")
	}

	// Banco nomeado exige o cliente direto; o default passa pelo app Firebase.
	if databaseID != "" {
		client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
		if err != nil {
			log.Fatalf("Erro ao inicializar cliente Firestore para o banco '%s': %v\n", databaseID, err)
		}
		log.Printf("Conectado com sucesso ao Firestore, banco de dados: %s", databaseID)
		return client
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		log.Fatalf("Erro ao inicializar app Firebase: %v\n", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("Erro ao inicializar cliente Firestore: %v\n", err)
	}
	log.Print("Conectado com sucesso ao Firestore, banco de dados padrão")
	return client
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("Arquivo .env não encontrado, prosseguindo com variáveis de ambiente")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: Variável de ambiente JWT_SECRET não está configurada.")
	}

	responses.InitLogger()
	ctx := context.Background()
	firestoreClient := initFirestoreClient(ctx)
	defer firestoreClient.Close()

	materiais := repository.NewMaterialRepository(firestoreClient)
	pedidos := repository.NewPedidoRepository(firestoreClient)
	financeiro := repository.NewFinanceiroRepository(firestoreClient)
	resultados := repository.NewResultadoRepository(firestoreClient)
	configuracoes := repository.NewConfiguracaoRepository(firestoreClient)

	parser := nfe.NewService()
	calculadora := fiscal.NewCalculadora()
	analisador := fiscal.NewAnalisador(fiscal.LimiarSimplesPadrao)
	authService := auth.NewService(firestoreClient, []byte(jwtSecret))
	depreciationService := depreciation.NewService()
	reconciliationService := reconciliation.NewService(
		parser, calculadora, materiais, pedidos, financeiro, resultados, configuracoes,
		responses.Logger())

	authHandler := handlers.NewAuthHandler(authService)
	fiscalHandler := handlers.NewFiscalHandler(parser, calculadora, analisador, configuracoes)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService)
	depreciationHandler := handlers.NewDepreciationHandler(depreciationService)

	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/login", authHandler.Login)
		protected := apiV1.Group("/")
		protected.Use(middleware.AuthMiddleware([]byte(jwtSecret)))
		{
			protected.GET("/fiscal/cfop/:codigo", fiscalHandler.HandleClassificarCFOP)
			protected.POST("/depreciation/cronograma", depreciationHandler.HandleCronograma)
			protected.POST("/depreciation/baixa", depreciationHandler.HandleBaixa)

			empresa := protected.Group("/empresas/:empresa")
			empresa.Use(middleware.EmpresaMiddleware())
			{
				empresa.POST("/fiscal/impostos", fiscalHandler.HandleCalcularImpostos)
				empresa.POST("/fiscal/regime", fiscalHandler.HandleAnalisarRegime)
				empresa.POST("/fiscal/configuracao", fiscalHandler.HandleGerarConfiguracao)
				empresa.GET("/fiscal/configuracao", fiscalHandler.HandleBuscarConfiguracao)
				empresa.POST("/conciliacoes", reconciliationHandler.HandleConciliar)
				empresa.POST("/conciliacoes/:id/aprovar", reconciliationHandler.HandleAprovarManual)
			}
		}
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Servidor iniciado e escutando na porta %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Falha ao iniciar o servidor: ", err)
	}
}
