package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// Rôles de keyspace ScyllaDB. Chaque rôle est configuré via
// SCYLLA_KS_<ROLE>_KEYSPACE / _ROLE / _PASSWORD dans .env
const (
	KeyspaceProducts = "PRODUCTS"
	KeyspaceUsers    = "USERS"
	KeyspaceOrders   = "ORDERS"
)

var keyspaceRoles = []string{KeyspaceProducts, KeyspaceUsers, KeyspaceOrders}

type scyllaKeyspace struct {
	Keyspace string
	Username string
	Password string
}

type ScyllaManager struct {
	hosts    []string
	sessions map[string]*gocql.Session // rôle → session
	configs  map[string]scyllaKeyspace
	mu       sync.Mutex
}

// --- Handles globaux ---
var (
	Scylla  *ScyllaManager
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
)

// ConnectDatabases initialise toutes les connexions. Fatal si une base
// obligatoire est injoignable.
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := initScylla(); err != nil {
		log.Fatalf("❌ Échec initialisation ScyllaDB: %v", err)
	}
	connectRedis(ctx)
	connectElastic()
	connectMinIO(ctx)

	log.Println("✅ Toutes les bases de données sont connectées")
}

// =============================================
// SCYLLA DB (multi-keyspaces avec rôles dédiés)
// =============================================

func initScylla() error {
	mgr := &ScyllaManager{
		hosts:    strings.Split(os.Getenv("SCYLLA_HOSTS"), ","),
		sessions: make(map[string]*gocql.Session),
		configs:  make(map[string]scyllaKeyspace),
	}

	for _, role := range keyspaceRoles {
		ks := os.Getenv("SCYLLA_KS_" + role + "_KEYSPACE")
		if ks == "" {
			return fmt.Errorf("SCYLLA_KS_%s_KEYSPACE non configuré", role)
		}
		mgr.configs[role] = scyllaKeyspace{
			Keyspace: ks,
			Username: os.Getenv("SCYLLA_KS_" + role + "_ROLE"),
			Password: os.Getenv("SCYLLA_KS_" + role + "_PASSWORD"),
		}
	}

	Scylla = mgr

	// Ouvrir toutes les sessions dès le démarrage
	for _, role := range keyspaceRoles {
		if _, err := mgr.Session(role); err != nil {
			return fmt.Errorf("keyspace %s: %v", role, err)
		}
	}

	// Note: les tables sont créées via scripts/scylladb_init.cql, pas ici
	return nil
}

func (sm *ScyllaManager) cluster(cfg scyllaKeyspace) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(sm.hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 20
	cluster.ReconnectInterval = 1 * time.Second
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// Session retourne (et ouvre au besoin) la session d'un rôle de keyspace
func (sm *ScyllaManager) Session(role string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cfg, ok := sm.configs[role]
	if !ok {
		return nil, fmt.Errorf("rôle de keyspace inconnu: %s", role)
	}

	if session, ok := sm.sessions[role]; ok {
		if err := session.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return session, nil
		}
		// Session invalide, on la recrée
		session.Close()
	}

	session, err := sm.cluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session %s: %v", cfg.Keyspace, err)
	}
	sm.sessions[role] = session
	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s' (rôle: %s)", cfg.Keyspace, cfg.Username)
	return session, nil
}

// CloseScylla ferme toutes les sessions ScyllaDB
func CloseScylla() {
	Scylla.mu.Lock()
	defer Scylla.mu.Unlock()
	for role, session := range Scylla.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée (%s)", role)
	}
}

// GetProductsSession retourne la session du keyspace produits
func GetProductsSession() (*gocql.Session, error) {
	return Scylla.Session(KeyspaceProducts)
}

// GetUsersSession retourne la session du keyspace utilisateurs
func GetUsersSession() (*gocql.Session, error) {
	return Scylla.Session(KeyspaceUsers)
}

// GetOrdersSession retourne la session du keyspace commandes
func GetOrdersSession() (*gocql.Session, error) {
	return Scylla.Session(KeyspaceOrders)
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context) {
	Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Erreur connexion Redis:", err)
	}
	log.Println("✅ Connecté à Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic() {
	cfg := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTIC_URL")},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal("❌ Erreur création client Elasticsearch:", err)
	}

	res, err := client.Info()
	if err != nil {
		log.Fatal("❌ Erreur connexion Elasticsearch:", err)
	}
	defer res.Body.Close()

	Elastic = client
	log.Println("✅ Connecté à Elasticsearch")
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: useSSL,
	})
	if err != nil {
		log.Fatal("❌ Erreur connexion MinIO:", err)
	}

	bucket := os.Getenv("MINIO_BUCKET")
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		log.Fatal("❌ Erreur vérification bucket MinIO:", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("❌ Erreur création bucket MinIO:", err)
		}
		log.Println("🪣 Bucket créé :", bucket)
	}

	MinIO = client
	log.Println("✅ Connecté à MinIO :", endpoint)
}
